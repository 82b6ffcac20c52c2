// Package metrics keeps lightweight serving counters. Counters are atomic
// so the hot path never takes a lock.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector accumulates request counters for the lifetime of a server run.
type Collector struct {
	total         atomic.Uint64
	matched       atomic.Uint64
	unmatched     atomic.Uint64
	chaosFailures atomic.Uint64
	cacheHits     atomic.Uint64

	mu      sync.Mutex
	started time.Time
}

// NewCollector creates a collector with the uptime clock started now.
func NewCollector() *Collector {
	return &Collector{started: time.Now()}
}

// RecordRequest counts one inbound request.
func (c *Collector) RecordRequest() { c.total.Add(1) }

// RecordMatched counts a request answered from the capture corpus.
func (c *Collector) RecordMatched() { c.matched.Add(1) }

// RecordUnmatched counts a request that fell through to the fallback.
func (c *Collector) RecordUnmatched() { c.unmatched.Add(1) }

// RecordChaosFailure counts a synthetic failure injected before matching.
func (c *Collector) RecordChaosFailure() { c.chaosFailures.Add(1) }

// RecordCacheHit counts a request served from the match cache.
func (c *Collector) RecordCacheHit() { c.cacheHits.Add(1) }

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	TotalRequests uint64  `json:"total_requests"`
	Matched       uint64  `json:"matched"`
	Unmatched     uint64  `json:"unmatched"`
	ChaosFailures uint64  `json:"chaos_failures"`
	CacheHits     uint64  `json:"cache_hits"`
	MatchRate     float64 `json:"match_rate"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Snapshot returns current counter values. MatchRate is matched over the
// sum of matched and unmatched, so chaos failures do not dilute it.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()

	s := Snapshot{
		TotalRequests: c.total.Load(),
		Matched:       c.matched.Load(),
		Unmatched:     c.unmatched.Load(),
		ChaosFailures: c.chaosFailures.Load(),
		CacheHits:     c.cacheHits.Load(),
		UptimeSeconds: time.Since(started).Seconds(),
	}
	if attempts := s.Matched + s.Unmatched; attempts > 0 {
		s.MatchRate = float64(s.Matched) / float64(attempts)
	}
	return s
}

// Reset zeroes every counter and restarts the uptime clock.
func (c *Collector) Reset() {
	c.total.Store(0)
	c.matched.Store(0)
	c.unmatched.Store(0)
	c.chaosFailures.Store(0)
	c.cacheHits.Store(0)

	c.mu.Lock()
	c.started = time.Now()
	c.mu.Unlock()
}
