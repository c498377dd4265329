// Package cache is a small in-process TTL cache used to shield the upstream
// providers from repeated identical requests.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/guttosm/nsepulse/internal/source"
)

type entry[V any] struct {
	expiresAt time.Time
	value     V
}

// Cache maps string keys to values of type V for a fixed TTL.
// The zero value is not usable; call New.
type Cache[V any] struct {
	ttl      time.Duration
	maxItems int
	now      func() time.Time

	mu    sync.RWMutex
	items map[string]entry[V]

	group singleflight.Group
}

// New returns a cache holding entries for ttl, capped at maxItems
// (unbounded when maxItems <= 0). A ttl <= 0 disables caching.
func New[V any](ttl time.Duration, maxItems int) *Cache[V] {
	return &Cache[V]{ttl: ttl, maxItems: maxItems, now: time.Now, items: make(map[string]entry[V])}
}

// Get returns the live value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores v under key.
func (c *Cache[V]) Set(key string, v V) {
	if c.ttl <= 0 {
		return
	}
	now := c.now()
	c.mu.Lock()
	c.items[key] = entry[V]{expiresAt: now.Add(c.ttl), value: v}
	c.evictLocked(now, key)
	c.mu.Unlock()
}

// Len reports how many entries are held, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// GetOrLoad returns the cached value for key or calls load once for all
// concurrent callers of the same key. Errors are returned to every waiter
// and are never stored. A caller whose ctx ends first gets a classified
// Timeout (or UpstreamUnavailable when cancelled) while the load carries on.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		// shared by every waiter, so detached from the first caller
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, source.Classify("cache", key, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			var zero V
			return zero, r.Err
		}
		return r.Val.(V), nil
	}
}

// evictLocked trims the map to maxItems: expired entries first, then
// arbitrary ones other than keep.
func (c *Cache[V]) evictLocked(now time.Time, keep string) {
	if c.maxItems <= 0 || len(c.items) <= c.maxItems {
		return
	}
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
		}
	}
	for k := range c.items {
		if len(c.items) <= c.maxItems {
			break
		}
		if k != keep {
			delete(c.items, k)
		}
	}
}
