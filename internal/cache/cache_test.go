package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced Clock for deterministic TTL tests.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestTTLCache_GetSet(t *testing.T) {
	t.Run("returns stored value before expiry", func(t *testing.T) {
		clock := newFakeClock()
		c := NewWithClock[string](10, time.Hour, clock)

		c.Set("topic:heart failure", "ranked")

		got, ok := c.Get("topic:heart failure")
		require.True(t, ok)
		assert.Equal(t, "ranked", got)
	})

	t.Run("misses on unknown key", func(t *testing.T) {
		c := NewWithClock[int](10, time.Hour, newFakeClock())

		_, ok := c.Get("absent")
		assert.False(t, ok)
	})

	t.Run("overwrites existing key", func(t *testing.T) {
		clock := newFakeClock()
		c := NewWithClock[int](10, time.Hour, clock)

		c.Set("k", 1)
		c.Set("k", 2)

		got, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, 2, got)
		assert.Equal(t, 1, c.Len())
	})
}

func TestTTLCache_Expiry(t *testing.T) {
	t.Run("entry expires after TTL", func(t *testing.T) {
		clock := newFakeClock()
		c := NewWithClock[string](10, time.Hour, clock)

		c.Set("k", "v")
		clock.Advance(time.Hour + time.Second)

		_, ok := c.Get("k")
		assert.False(t, ok)
		assert.Equal(t, 0, c.Len(), "expired entry should be removed on read")
	})

	t.Run("entry survives just under TTL", func(t *testing.T) {
		clock := newFakeClock()
		c := NewWithClock[string](10, time.Hour, clock)

		c.Set("k", "v")
		clock.Advance(time.Hour - time.Second)

		_, ok := c.Get("k")
		assert.True(t, ok)
	})

	t.Run("set refreshes expiry", func(t *testing.T) {
		clock := newFakeClock()
		c := NewWithClock[string](10, time.Hour, clock)

		c.Set("k", "v1")
		clock.Advance(50 * time.Minute)
		c.Set("k", "v2")
		clock.Advance(50 * time.Minute)

		got, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, "v2", got)
	})
}

func TestTTLCache_LRUEviction(t *testing.T) {
	t.Run("oldest entry evicted when full", func(t *testing.T) {
		clock := newFakeClock()
		c := NewWithClock[int](2, time.Hour, clock)

		c.Set("a", 1)
		c.Set("b", 2)
		c.Set("c", 3)

		_, ok := c.Get("a")
		assert.False(t, ok, "least recently used entry should be evicted")

		_, ok = c.Get("b")
		assert.True(t, ok)
		_, ok = c.Get("c")
		assert.True(t, ok)
	})

	t.Run("recent read protects entry from eviction", func(t *testing.T) {
		clock := newFakeClock()
		c := NewWithClock[int](2, time.Hour, clock)

		c.Set("a", 1)
		c.Set("b", 2)
		c.Get("a")
		c.Set("c", 3)

		_, ok := c.Get("a")
		assert.True(t, ok)
		_, ok = c.Get("b")
		assert.False(t, ok)
	})
}

func TestTTLCache_Remove(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock[string](10, time.Hour, clock)

	c.Set("k", "v")
	c.Remove("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTLCache_Stats(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock[string](10, time.Minute, clock)

	c.Set("k", "v")
	c.Get("k")
	c.Get("k")
	c.Get("absent")

	clock.Advance(2 * time.Minute)
	c.Get("k")

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(2), misses, "unknown key and expired entry both count as misses")
}

func TestTTLCache_Concurrent(t *testing.T) {
	c := New[int](100, time.Hour)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%20)
				c.Set(key, n)
				c.Get(key)
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.LessOrEqual(t, c.Len(), 20)
}
