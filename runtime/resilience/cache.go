package resilience

import (
	"container/list"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// EvictionPolicy selects which entry is dropped when the cache exceeds
// its configured size.
type EvictionPolicy string

const (
	EvictLRU  EvictionPolicy = "lru"
	EvictFIFO EvictionPolicy = "fifo"
)

// CacheConfig controls one per-method cache instance.
type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
	Eviction   EvictionPolicy

	// Now overrides the clock; tests use a fake.
	Now func() time.Time
}

// cacheEntry is owned exclusively by its cache instance.
type cacheEntry struct {
	key        string
	value      any
	insertedAt time.Time
	ttl        time.Duration
	elem       *list.Element
}

func (e *cacheEntry) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.insertedAt) >= e.ttl
}

// Cache is a per-method TTL cache with bounded size. Entries are
// evicted on TTL expiry or, beyond MaxEntries, by the configured
// policy: lru drops the least recently used entry, fifo the oldest
// inserted one.
type Cache struct {
	cfg CacheConfig

	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   *list.List // front = candidate for eviction
	hits    uint64
	misses  uint64
}

// NewCache creates an empty cache.
func NewCache(cfg CacheConfig) *Cache {
	if cfg.MaxEntries < 1 {
		cfg.MaxEntries = 1
	}
	if cfg.Eviction == "" {
		cfg.Eviction = EvictLRU
	}
	return &Cache{
		cfg:     cfg,
		entries: make(map[string]*cacheEntry),
		order:   list.New(),
	}
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if e.expired(c.now()) {
		c.removeLocked(e)
		c.misses++
		return nil, false
	}
	if c.cfg.Eviction == EvictLRU {
		c.order.MoveToBack(e.elem)
	}
	c.hits++
	return e.value, true
}

// Set stores value under key with the cache's TTL, evicting per the
// configured policy when the entry count exceeds MaxEntries.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.insertedAt = c.now()
		if c.cfg.Eviction == EvictLRU {
			c.order.MoveToBack(e.elem)
		}
		return
	}

	e := &cacheEntry{
		key:        key,
		value:      value,
		insertedAt: c.now(),
		ttl:        c.cfg.TTL,
	}
	e.elem = c.order.PushBack(e)
	c.entries[key] = e

	for len(c.entries) > c.cfg.MaxEntries {
		front := c.order.Front()
		if front == nil {
			break
		}
		c.removeLocked(front.Value.(*cacheEntry))
	}
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Purge drops every entry (used for testing).
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.order.Init()
}

func (c *Cache) removeLocked(e *cacheEntry) {
	delete(c.entries, e.key)
	c.order.Remove(e.elem)
}

func (c *Cache) now() time.Time {
	if c.cfg.Now != nil {
		return c.cfg.Now()
	}
	return time.Now()
}

// Cached runs op through the cache: a hit returns the stored value
// without invoking op; a miss invokes op and stores the result only on
// success. Failures are returned unchanged and never cached.
func Cached[T any](c *Cache, key string, op func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v.(T), nil
	}
	result, err := op()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, result)
	return result, nil
}

// Key builds a stable cache key from the method identity and a
// deterministic encoding of the arguments. Arguments are JSON-encoded,
// which dereferences pointers and orders map keys, so equal values
// always produce equal keys. An argument JSON cannot encode falls back
// to a Go-syntax rendering with no stability guarantee.
func Key(method string, args ...any) string {
	if len(args) == 0 {
		return method + "()"
	}
	parts := make([]string, len(args))
	for i, a := range args {
		if encoded, err := json.Marshal(a); err == nil {
			parts[i] = string(encoded)
		} else {
			parts[i] = fmt.Sprintf("%#v", a)
		}
	}
	return method + "(" + strings.Join(parts, ",") + ")"
}

// CacheRegistry is the process-wide map of per-method caches, looked up
// by stable method identity under the registry's own lock.
type CacheRegistry struct {
	mu     sync.Mutex
	caches map[string]*Cache
}

// NewCacheRegistry creates an empty registry.
func NewCacheRegistry() *CacheRegistry {
	return &CacheRegistry{caches: make(map[string]*Cache)}
}

// Get returns the cache for name, creating it from cfg on first use.
func (r *CacheRegistry) Get(name string, cfg CacheConfig) *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.caches[name]; ok {
		return c
	}
	c := NewCache(cfg)
	r.caches[name] = c
	return c
}

// Reset clears the registry (used for testing).
func (r *CacheRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caches = make(map[string]*Cache)
}

var defaultCaches = NewCacheRegistry()

// Caches returns the process-wide cache registry the generated
// wrappers use.
func Caches() *CacheRegistry { return defaultCaches }
