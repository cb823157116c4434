package cache

import (
	"sync"
	"time"
)

// ListCache is a process-wide read-through cache for a single listing query.
// Invalidation is coarse: every write anywhere in the ticket domain bumps a
// generation counter, and a cached value from an older generation is treated
// as a miss. The value additionally ages out after the TTL so a process that
// sees no writes still refreshes eventually.
//
// Get returns the generation current at read time; a caller that misses must
// pass that generation back to Put. A write that lands between the miss and
// the Put bumps the counter, so the late Put stores an already-stale value
// instead of resurrecting pre-write data.
type ListCache struct {
	mu  sync.Mutex
	ttl time.Duration

	gen      uint64
	value    interface{}
	valueGen uint64
	filledAt time.Time
	filled   bool
}

func NewListCache(ttl time.Duration) *ListCache {
	return &ListCache{ttl: ttl}
}

// Get returns the cached value if it is from the current generation and
// within the TTL, along with the generation observed.
func (c *ListCache) Get() (interface{}, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.filled || c.valueGen != c.gen {
		return nil, c.gen, false
	}

	if time.Since(c.filledAt) > c.ttl {
		c.filled = false
		return nil, c.gen, false
	}

	return c.value, c.gen, true
}

// Put stores a value computed against the given generation.
func (c *ListCache) Put(value interface{}, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = value
	c.valueGen = gen
	c.filledAt = time.Now()
	c.filled = true
}

// Invalidate marks everything cached so far as stale.
func (c *ListCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
}
