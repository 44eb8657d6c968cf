// Package cache provides size-bounded in-memory TTL caches for the
// Expert Finder Service. Entries expire lazily on read; the LRU bound
// keeps memory flat under heavy topic churn.
package cache

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Clock abstracts time for cache expiry so TTL behavior can be tested
// deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation of Clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is an LRU cache whose entries also expire after a fixed TTL.
// Expired entries are dropped on Get; the LRU bound evicts the oldest
// entries when the cache is full. Safe for concurrent use.
type TTLCache[V any] struct {
	lru   *lru.Cache[string, entry[V]]
	ttl   time.Duration
	clock Clock

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a TTLCache holding at most size entries, each valid for ttl
// after insertion. Size must be positive.
func New[V any](size int, ttl time.Duration) *TTLCache[V] {
	return NewWithClock[V](size, ttl, SystemClock{})
}

// NewWithClock creates a TTLCache using the given clock for expiry checks.
func NewWithClock[V any](size int, ttl time.Duration, clock Clock) *TTLCache[V] {
	c, _ := lru.New[string, entry[V]](size)
	return &TTLCache[V]{
		lru:   c,
		ttl:   ttl,
		clock: clock,
	}
}

// Get returns the cached value for key if present and not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	if c.clock.Now().After(e.expiresAt) {
		c.lru.Remove(key)
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key with the cache's TTL.
func (c *TTLCache[V]) Set(key string, value V) {
	c.lru.Add(key, entry[V]{
		value:     value,
		expiresAt: c.clock.Now().Add(c.ttl),
	})
}

// Remove drops key from the cache if present.
func (c *TTLCache[V]) Remove(key string) {
	c.lru.Remove(key)
}

// Len returns the number of entries currently held, including entries
// that have expired but not yet been read.
func (c *TTLCache[V]) Len() int {
	return c.lru.Len()
}

// Stats reports cumulative hit and miss counts since creation.
func (c *TTLCache[V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
