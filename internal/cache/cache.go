// Package cache is an in-memory key/value cache with time-boxed validity.
//
// Keys follow the "<entity>:<qualifier>" convention (for example
// "domains:all:active" or "tags:by-domain:<id>") so a whole entity kind can
// be evicted with a single InvalidatePattern call. An expired entry and an
// absent one are indistinguishable to callers: both are a miss.
package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is used by Set.
const DefaultTTL = 5 * time.Second

type entry struct {
	value     any
	expiresAt time.Time
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
}

// Cache is safe for concurrent use. Every operation holds the lock for its
// whole duration, so a Get issued after a Set or Invalidate on the same key
// observes it.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	stats   Stats
	// gen moves on every invalidation.
	gen uint64
}

type Option func(*Cache)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores value under key with the cache's default TTL, overwriting any
// existing entry.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key for ttl. A nil value or a non-positive
// ttl leaves nothing behind, so the next Get is a miss.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value == nil || ttl <= 0 {
		delete(c.entries, key)
		return
	}
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
}

// Generation reports the current invalidation generation. Pair it with
// SetIfGeneration to store a value computed from a read that started before
// a concurrent invalidation.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// SetIfGeneration stores value with the default TTL only when no
// invalidation happened since gen was taken. It reports whether the value
// was stored.
func (c *Cache) SetIfGeneration(key string, value any, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen || value == nil {
		return false
	}
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
	return true
}

// Get returns the value stored under key when it is present and unexpired.
// Expired entries are evicted on access.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.stats.Evictions++
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return e.value, true
}

// GetAs is Get with a type assertion. A value of another type is a miss.
func GetAs[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Invalidate removes exactly key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	delete(c.entries, key)
}

// InvalidatePattern removes every key that starts with prefix. The match is
// a literal prefix comparison.
func (c *Cache) InvalidatePattern(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	clear(c.entries)
}

// Keys returns the live keys in sorted order. Expired entries are never
// reported even if they have not been evicted yet.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if now.Before(e.expiresAt) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Len counts live entries.
func (c *Cache) Len() int {
	return len(c.Keys())
}

// Stats returns a snapshot of the hit/miss counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	now := c.now()
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			s.Entries++
		}
	}
	return s
}
