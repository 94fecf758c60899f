package store

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no entry exists for a key.
	ErrNotFound = errors.New("no cached entry for key")
)

// Default freshness windows.
const (
	DefaultConditionsTTL = 10 * time.Minute
	DefaultImageryTTL    = 5 * time.Minute
)

// Entry is a cached value together with the time it was fetched.
type Entry[V any] struct {
	Key       string
	Value     V
	FetchedAt time.Time
}

// Cache is a concurrency-safe key/value store with TTL-based freshness.
// Entries are never evicted; a stale entry stays available as a fallback
// until it is overwritten or the cache is cleared.
type Cache[V any] struct {
	mu sync.RWMutex

	// key: cache key (usually derived from a location), value: last fetched entry
	data map[string]Entry[V]

	ttl time.Duration
	now func() time.Time
}

// Option configures a Cache.
type Option func(*cacheOptions)

type cacheOptions struct {
	now func() time.Time
}

// WithClock overrides the time source, mostly useful in tests.
func WithClock(now func() time.Time) Option {
	return func(o *cacheOptions) {
		o.now = now
	}
}

// NewCache creates a new Cache. If ttl is <= 0, every entry is treated as stale.
func NewCache[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	o := cacheOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache[V]{
		data: make(map[string]Entry[V]),
		ttl:  ttl,
		now:  o.now,
	}
}

// Get returns the cached value regardless of its age.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	return e.Value, ok
}

// Entry returns the full entry for a key.
func (c *Cache[V]) Entry(key string) (Entry[V], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok {
		return Entry[V]{}, ErrNotFound
	}
	return e, nil
}

// Put stores value under key, stamped with the current time.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = Entry[V]{
		Key:       key,
		Value:     value,
		FetchedAt: c.now(),
	}
}

// IsFresh reports whether key holds an entry younger than the TTL.
func (c *Cache[V]) IsFresh(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok {
		return false
	}
	return c.now().Sub(e.FetchedAt) < c.ttl
}

// SetTTL changes the freshness window. Existing entries are judged against
// the new value on the next lookup.
func (c *Cache[V]) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

// TTL returns the current freshness window.
func (c *Cache[V]) TTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ttl
}

// Clear drops every entry, including the ones kept for stale fallback.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]Entry[V])
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
