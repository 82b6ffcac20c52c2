package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotCounts(t *testing.T) {
	c := NewCollector()
	for i := 0; i < 5; i++ {
		c.RecordRequest()
	}
	c.RecordMatched()
	c.RecordMatched()
	c.RecordMatched()
	c.RecordUnmatched()
	c.RecordChaosFailure()
	c.RecordCacheHit()

	s := c.Snapshot()
	assert.Equal(t, uint64(5), s.TotalRequests)
	assert.Equal(t, uint64(3), s.Matched)
	assert.Equal(t, uint64(1), s.Unmatched)
	assert.Equal(t, uint64(1), s.ChaosFailures)
	assert.Equal(t, uint64(1), s.CacheHits)
	assert.InDelta(t, 0.75, s.MatchRate, 1e-9)
	assert.GreaterOrEqual(t, s.UptimeSeconds, 0.0)
}

func TestMatchRateZeroWhenNoAttempts(t *testing.T) {
	c := NewCollector()
	c.RecordRequest()
	c.RecordChaosFailure()
	assert.Zero(t, c.Snapshot().MatchRate)
}

func TestReset(t *testing.T) {
	c := NewCollector()
	c.RecordRequest()
	c.RecordMatched()
	c.Reset()

	s := c.Snapshot()
	assert.Zero(t, s.TotalRequests)
	assert.Zero(t, s.Matched)
	assert.Zero(t, s.MatchRate)
}

func TestConcurrentRecording(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RecordRequest()
				c.RecordMatched()
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	assert.Equal(t, uint64(1000), s.TotalRequests)
	assert.Equal(t, uint64(1000), s.Matched)
}
