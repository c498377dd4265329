// Package aggregate fans a request out to several providers at once and
// collects one source.Result per capability.
//
// A Group never fails as a whole. Each call runs under its own timeout
// derived from the parent context, so a slow or failing sibling cannot
// cancel the others, and a call that outlives its deadline is recorded as
// a Timeout without being waited for.
package aggregate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/nsepulse/internal/source"
)

// Results maps a capability name to its outcome. Values are source.Result[T]
// boxed as source.Result[any]; use Get to read them back typed.
type Results map[string]source.Result[any]

// Group collects concurrent provider calls.
type Group struct {
	ctx     context.Context
	timeout time.Duration
	eg      errgroup.Group

	mu      sync.Mutex
	results Results
}

// New returns a Group whose calls each get timeout (no per-call limit when
// timeout <= 0) on top of ctx.
func New(ctx context.Context, timeout time.Duration) *Group {
	return &Group{ctx: ctx, timeout: timeout, results: make(Results)}
}

// Go launches fn under name. fn should honour its context.
func Go[T any](g *Group, name string, fn func(ctx context.Context) source.Result[T]) {
	g.eg.Go(func() error {
		ctx, cancel := g.callContext()
		defer cancel()

		done := make(chan source.Result[T], 1)
		go func() {
			done <- fn(ctx)
		}()

		var r source.Result[T]
		select {
		case r = <-done:
		case <-ctx.Done():
			r = source.Fail[T](name, "aggregate", ctx.Err())
		}
		g.store(name, box(r))
		return nil
	})
}

// Wait blocks until every call has either finished or hit its deadline.
func (g *Group) Wait() Results {
	_ = g.eg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(Results, len(g.results))
	for k, v := range g.results {
		out[k] = v
	}
	return out
}

// Get returns the typed result stored under name. A missing entry or a
// value of the wrong type is reported as an Unknown failure.
func Get[T any](rs Results, name string) source.Result[T] {
	r, ok := rs[name]
	if !ok {
		return source.Result[T]{Err: source.Errorf(source.Unknown, name, "aggregate", "no result recorded")}
	}
	if r.Err != nil {
		return source.Result[T]{Err: r.Err}
	}
	v, ok := r.Value.(T)
	if !ok {
		return source.Result[T]{Err: source.Errorf(source.Unknown, name, "aggregate", "unexpected result type %T", r.Value)}
	}
	return source.OK(v)
}

// Statuses summarizes results as name -> "ok" or the failure kind.
func (rs Results) Statuses() map[string]string {
	out := make(map[string]string, len(rs))
	for name, r := range rs {
		if r.Ok() {
			out[name] = "ok"
			continue
		}
		out[name] = string(r.Kind())
	}
	return out
}

func (g *Group) callContext() (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(g.ctx)
	}
	return context.WithTimeout(g.ctx, g.timeout)
}

func (g *Group) store(name string, r source.Result[any]) {
	g.mu.Lock()
	g.results[name] = r
	g.mu.Unlock()
}

func box[T any](r source.Result[T]) source.Result[any] {
	if r.Err != nil {
		return source.Result[any]{Err: r.Err}
	}
	return source.OK[any](r.Value)
}
