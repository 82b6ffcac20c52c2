package cache

import (
	"sync"

	"github.com/getmockd/replayd/internal/matching"
)

// DefaultCapacity is used when no capacity is configured.
const DefaultCapacity = 1000

type entry struct {
	key    uint64
	result matching.MatchResult
	used   bool
}

// Cache is a fixed-capacity FIFO map from request fingerprint to match
// result. The backing array and a write cursor avoid per-request allocation;
// when full, the oldest inserted entry is evicted regardless of how often it
// was read. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries []entry
	index   map[uint64]int
	cursor  int
	size    int

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a cache with the given capacity. A capacity of zero or less
// disables caching: Get always misses and Put is a no-op.
func New(capacity int) *Cache {
	c := &Cache{}
	if capacity > 0 {
		c.entries = make([]entry, capacity)
		c.index = make(map[uint64]int, capacity)
	}
	return c
}

// Get returns the memoized result for the fingerprint, if present.
func (c *Cache) Get(key uint64) (matching.MatchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index != nil {
		if pos, ok := c.index[key]; ok {
			c.hits++
			return c.entries[pos].result, true
		}
	}
	c.misses++
	return matching.MatchResult{}, false
}

// Put stores the result under the fingerprint. An existing entry is updated
// in place without disturbing eviction order; a new entry may evict the
// oldest one.
func (c *Cache) Put(key uint64, result matching.MatchResult) {
	if len(c.entries) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if pos, ok := c.index[key]; ok {
		c.entries[pos].result = result
		return
	}

	slot := &c.entries[c.cursor]
	if slot.used {
		delete(c.index, slot.key)
		c.evictions++
	} else {
		c.size++
	}
	*slot = entry{key: key, result: result, used: true}
	c.index[key] = c.cursor
	c.cursor = (c.cursor + 1) % len(c.entries)
}

// Clear drops every entry and resets the counters. Called whenever the
// matching configuration changes, since memoized scores computed under the
// old policy are unsafe to reuse.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		c.entries[i] = entry{}
	}
	if c.index != nil {
		c.index = make(map[uint64]int, len(c.entries))
	}
	c.cursor = 0
	c.size = 0
	c.hits = 0
	c.misses = 0
	c.evictions = 0
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Size      int     `json:"size"`
	Capacity  int     `json:"capacity"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{
		Size:      c.size,
		Capacity:  len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
