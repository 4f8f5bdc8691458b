package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// NoExpiry keeps an entry for the lifetime of the process
const NoExpiry time.Duration = 0

// DefaultMaxEntries bounds a cache when Options.MaxEntries is unset
const DefaultMaxEntries = 10000

// Options configures a TTL cache
type Options struct {
	// MaxEntries caps the number of live entries. The least recently used
	// entry is evicted once the cap is reached.
	MaxEntries int
	// Now is the clock used for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

type entry[V any] struct {
	value     V
	expiresAt time.Time // zero means never
}

// Stats is a snapshot of cache counters
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// TTL maps string keys to values that expire lazily: an expired entry is
// removed by the read that finds it.
type TTL[V any] struct {
	mu     sync.Mutex
	store  *simplelru.LRU[string, entry[V]]
	now    func() time.Time
	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a TTL cache
func New[V any](opts Options) *TTL[V] {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	// NewLRU only fails for a non-positive size, which is ruled out above.
	store, _ := simplelru.NewLRU[string, entry[V]](opts.MaxEntries, nil)

	return &TTL[V]{
		store: store,
		now:   opts.Now,
	}
}

// Get returns the value stored under key. Entries whose expiry has passed
// are evicted and reported as absent.
func (c *TTL[V]) Get(key string) (V, bool) {
	v, ok := c.Peek(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Peek is Get without touching the hit/miss counters. Use it to re-check a
// key that has already been counted.
func (c *TTL[V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.store.Get(key)
	if !ok {
		return zero, false
	}

	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.store.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous entry. A ttl of
// NoExpiry (or any non-positive duration) never expires.
func (c *TTL[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry[V]{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.store.Add(key, e)
}

// Len returns the number of stored entries, including expired ones not yet read
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Len()
}

// Stats returns hit/miss counters and the current entry count
func (c *TTL[V]) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.Len(),
	}
}
