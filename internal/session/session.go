// Package session keeps cookie-based upstream sessions alive for adapters
// that scrape sites rather than call real APIs.
//
// A Manager moves through Uninitialized -> Active -> Expired -> Active. It
// bootstraps lazily, detects expiry from the response to a data request,
// re-bootstraps at most once per call and replays the request once.
// Concurrent callers that observe the same expiry share one bootstrap.
package session

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/guttosm/nsepulse/internal/httpx"
	"github.com/guttosm/nsepulse/internal/source"
)

// State of a session.
type State int32

const (
	Uninitialized State = iota
	Active
	Expired
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Expired:
		return "expired"
	default:
		return "uninitialized"
	}
}

// Bootstrapper performs the handshake that establishes a session, usually by
// visiting a landing page so the shared cookie jar is populated. The returned
// token (a crumb, for example) is handed to every RequestFunc; it may be empty.
type Bootstrapper func(ctx context.Context, doer httpx.Doer) (token string, err error)

// RequestFunc builds the data request for the current session token. It is
// called again for the replay, so it must not capture a consumed body.
type RequestFunc func(ctx context.Context, token string) (*http.Request, error)

// Option configures a Manager.
type Option func(*Manager)

// WithAuthFailure overrides which responses count as an expired session.
func WithAuthFailure(fn func(*http.Response) bool) Option {
	return func(m *Manager) { m.isAuthFailure = fn }
}

// WithBootstrapTimeout bounds a single bootstrap attempt.
func WithBootstrapTimeout(d time.Duration) Option {
	return func(m *Manager) { m.bootstrapTimeout = d }
}

// WithLogger sets the logger used for state transitions.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// Manager owns the session state for one adapter instance.
type Manager struct {
	name             string
	doer             httpx.Doer
	bootstrap        Bootstrapper
	isAuthFailure    func(*http.Response) bool
	bootstrapTimeout time.Duration
	log              zerolog.Logger

	mu    sync.RWMutex
	state State
	token string
	gen   uint64 // bumped on every successful bootstrap

	bootstraps atomic.Int64
	group      singleflight.Group
}

// New creates a Manager in the Uninitialized state.
func New(name string, doer httpx.Doer, bootstrap Bootstrapper, opts ...Option) *Manager {
	m := &Manager{
		name:             name,
		doer:             doer,
		bootstrap:        bootstrap,
		isAuthFailure:    DefaultAuthFailure,
		bootstrapTimeout: 15 * time.Second,
		log:              zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DefaultAuthFailure treats 401 and 403 as an expired session.
func DefaultAuthFailure(resp *http.Response) bool {
	return resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Bootstraps returns how many bootstrap attempts have been made.
func (m *Manager) Bootstraps() int64 { return m.bootstraps.Load() }

// Do sends the request built by build inside a live session.
//
// The returned response is the caller's to close. Responses that are not
// auth failures are returned untouched whatever their status; only the
// second consecutive auth failure becomes an AuthExpired error.
func (m *Manager) Do(ctx context.Context, build RequestFunc) (*http.Response, error) {
	token, gen, err := m.ensure(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := m.send(ctx, build, token)
	if err != nil {
		return nil, err
	}
	if !m.isAuthFailure(resp) {
		return resp, nil
	}

	m.log.Warn().Int("status", resp.StatusCode).Msg("session expired, re-bootstrapping")
	httpx.Drain(resp)
	m.expire(gen)

	token, gen, err = m.refresh(ctx, gen)
	if err != nil {
		return nil, err
	}
	resp, err = m.send(ctx, build, token)
	if err != nil {
		return nil, err
	}
	if m.isAuthFailure(resp) {
		code := resp.StatusCode
		httpx.Drain(resp)
		m.expire(gen)
		return nil, source.Errorf(source.AuthExpired, m.name, "session", "still unauthorized after re-bootstrap (status %d)", code)
	}
	return resp, nil
}

func (m *Manager) ensure(ctx context.Context) (string, uint64, error) {
	m.mu.RLock()
	state, token, gen := m.state, m.token, m.gen
	m.mu.RUnlock()
	if state == Active {
		return token, gen, nil
	}
	return m.refresh(ctx, gen)
}

type snapshot struct {
	token string
	gen   uint64
}

// refresh returns a session newer than seen, bootstrapping unless another
// caller already has. A waiter that joined a flight started before its own
// expiry gets that flight's generation back and goes round again.
func (m *Manager) refresh(ctx context.Context, seen uint64) (string, uint64, error) {
	for {
		ch := m.group.DoChan("bootstrap", func() (any, error) {
			return m.bootstrapAfter(ctx, seen)
		})

		select {
		case <-ctx.Done():
			return "", 0, source.Classify(m.name, "bootstrap", ctx.Err())
		case r := <-ch:
			if r.Err != nil {
				return "", 0, source.New(source.UpstreamUnavailable, m.name, "bootstrap", r.Err)
			}
			s := r.Val.(snapshot)
			if s.gen > seen {
				return s.token, s.gen, nil
			}
		}
	}
}

func (m *Manager) bootstrapAfter(ctx context.Context, seen uint64) (snapshot, error) {
	m.mu.RLock()
	if m.state == Active && m.gen > seen {
		s := snapshot{token: m.token, gen: m.gen}
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	// the flight outlives any single waiter's cancellation
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.bootstrapTimeout)
	defer cancel()

	m.bootstraps.Add(1)
	start := time.Now()
	token, err := m.bootstrap(bctx, m.doer)
	if err != nil {
		m.log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("session bootstrap failed")
		return snapshot{}, err
	}

	m.mu.Lock()
	m.gen++
	m.state = Active
	m.token = token
	s := snapshot{token: token, gen: m.gen}
	m.mu.Unlock()

	m.log.Info().Uint64("generation", s.gen).Dur("elapsed", time.Since(start)).Msg("session active")
	return s, nil
}

// expire marks the session Expired if it is still the generation that failed.
func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen == gen && m.state == Active {
		m.state = Expired
	}
}

func (m *Manager) send(ctx context.Context, build RequestFunc, token string) (*http.Response, error) {
	req, err := build(ctx, token)
	if err != nil {
		return nil, source.New(source.InvalidParameters, m.name, "request", err)
	}
	resp, err := m.doer.Do(req)
	if err != nil {
		return nil, source.ClassifyTransport(m.name, "request", err)
	}
	return resp, nil
}
