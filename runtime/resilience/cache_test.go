package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheHitWithinTTL(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(CacheConfig{TTL: time.Minute, MaxEntries: 10, Now: clock.Now})

	calls := 0
	op := func() (string, error) {
		calls++
		return "value", nil
	}

	v, err := Cached(c, "k", op)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls)

	clock.Advance(59 * time.Second)
	v, err = Cached(c, "k", op)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls, "hit within TTL must not invoke the operation")
}

func TestCacheMissAfterTTL(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(CacheConfig{TTL: time.Minute, MaxEntries: 10, Now: clock.Now})

	calls := 0
	op := func() (string, error) {
		calls++
		return "value", nil
	}

	_, err := Cached(c, "k", op)
	require.NoError(t, err)

	clock.Advance(61 * time.Second)
	_, err = Cached(c, "k", op)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "expired entry must invoke the operation again")

	hits, misses := c.Stats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestCacheFailuresNeverCached(t *testing.T) {
	c := NewCache(CacheConfig{TTL: time.Minute, MaxEntries: 10})

	calls := 0
	boom := errors.New("boom")
	op := func() (int, error) {
		calls++
		if calls == 1 {
			return 0, boom
		}
		return 42, nil
	}

	_, err := Cached(c, "k", op)
	assert.Same(t, boom, err)
	assert.Equal(t, 0, c.Len())

	v, err := Cached(c, "k", op)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 2, calls)
}

func TestCacheLRUEviction(t *testing.T) {
	c := NewCache(CacheConfig{TTL: time.Minute, MaxEntries: 2, Eviction: EvictLRU})

	c.Set("a", 1)
	c.Set("b", 2)

	// Touch "a" so "b" becomes the least recently used
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used entry should have been evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCacheFIFOEviction(t *testing.T) {
	c := NewCache(CacheConfig{TTL: time.Minute, MaxEntries: 2, Eviction: EvictFIFO})

	c.Set("a", 1)
	c.Set("b", 2)

	// FIFO ignores access recency: "a" is still the oldest insertion
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)

	_, ok = c.Get("a")
	assert.False(t, ok, "oldest inserted entry should have been evicted")
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestCacheSetRefreshesEntry(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(CacheConfig{TTL: time.Minute, MaxEntries: 10, Now: clock.Now})

	c.Set("k", 1)
	clock.Advance(45 * time.Second)
	c.Set("k", 2)
	clock.Advance(45 * time.Second)

	v, ok := c.Get("k")
	require.True(t, ok, "rewrite should restart the TTL")
	assert.Equal(t, 2, v)
}

func TestCachePurge(t *testing.T) {
	c := NewCache(CacheConfig{TTL: time.Minute, MaxEntries: 10})
	c.Set("a", 1)
	c.Set("b", 2)

	c.Purge()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "svc.Op()", Key("svc.Op"))

	// Same method and arguments produce the same key
	assert.Equal(t, Key("svc.Op", "a", 1), Key("svc.Op", "a", 1))

	// Distinct arguments produce distinct keys
	assert.NotEqual(t, Key("svc.Op", "a"), Key("svc.Op", "b"))
	assert.NotEqual(t, Key("svc.Op", 1), Key("svc.Op", "1"))
}

func TestKeyIsDeterministicForPointersAndMaps(t *testing.T) {
	// Two pointers to equal values must hit the same cache entry.
	a, b := 42, 42
	assert.Equal(t, Key("svc.Op", &a), Key("svc.Op", &b))

	// Map encoding is ordered by key, not by iteration order.
	m1 := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5}
	m2 := map[string]int{"e": 5, "d": 4, "c": 3, "b": 2, "a": 1}
	for i := 0; i < 50; i++ {
		assert.Equal(t, Key("svc.Op", m1), Key("svc.Op", m2))
	}

	assert.NotEqual(t, Key("svc.Op", map[string]int{"a": 1}), Key("svc.Op", map[string]int{"a": 2}))
}

func TestCacheRegistry(t *testing.T) {
	r := NewCacheRegistry()
	cfg := CacheConfig{TTL: time.Minute, MaxEntries: 4}

	a := r.Get("svc.A", cfg)
	assert.Same(t, a, r.Get("svc.A", cfg))
	assert.NotSame(t, a, r.Get("svc.B", cfg))

	r.Reset()
	assert.NotSame(t, a, r.Get("svc.A", cfg))
}
