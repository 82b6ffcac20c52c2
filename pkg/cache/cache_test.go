package cache

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/replayd/internal/matching"
)

func result(idx int, total float64) matching.MatchResult {
	return matching.MatchResult{
		Matched: true,
		Index:   idx,
		Score:   matching.ScoreBreakdown{Total: total, Strategy: matching.StrategyFuzzy},
	}
}

func TestCachePutGet(t *testing.T) {
	c := New(10)

	_, ok := c.Get(1)
	assert.False(t, ok)

	c.Put(1, result(0, 0.9))
	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, 0, got.Index)
	assert.Equal(t, 0.9, got.Score.Total)
}

func TestCacheFIFOEviction(t *testing.T) {
	c := New(3)
	for i := 0; i < 3; i++ {
		c.Put(uint64(i), result(i, 1))
	}
	assert.Equal(t, 3, c.Len())

	// Reading key 0 must not protect it: eviction is FIFO, not LRU.
	_, ok := c.Get(0)
	require.True(t, ok)

	c.Put(99, result(99, 1))
	assert.Equal(t, 3, c.Len())

	_, ok = c.Get(0)
	assert.False(t, ok, "oldest entry should be evicted first")
	for _, k := range []uint64{1, 2, 99} {
		_, ok := c.Get(k)
		assert.True(t, ok, "key %d should survive", k)
	}
}

func TestCacheEvictionOrderIsInsertionOrder(t *testing.T) {
	c := New(2)
	c.Put(10, result(0, 1))
	c.Put(20, result(1, 1))
	c.Put(30, result(2, 1)) // evicts 10
	c.Put(40, result(3, 1)) // evicts 20

	_, ok10 := c.Get(10)
	_, ok20 := c.Get(20)
	_, ok30 := c.Get(30)
	_, ok40 := c.Get(40)
	assert.False(t, ok10)
	assert.False(t, ok20)
	assert.True(t, ok30)
	assert.True(t, ok40)
}

func TestCacheNeverExceedsCapacity(t *testing.T) {
	c := New(5)
	for i := 0; i < 100; i++ {
		c.Put(uint64(i), result(i, 1))
		assert.LessOrEqual(t, c.Len(), 5)
	}
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, uint64(95), c.Stats().Evictions)
}

func TestCacheUpdateInPlace(t *testing.T) {
	c := New(2)
	c.Put(1, result(0, 0.5))
	c.Put(1, result(0, 0.8))
	assert.Equal(t, 1, c.Len())

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, 0.8, got.Score.Total)
}

func TestCacheDisabled(t *testing.T) {
	c := New(0)
	c.Put(1, result(0, 1))
	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheClear(t *testing.T) {
	c := New(4)
	c.Put(1, result(0, 1))
	c.Put(2, result(1, 1))
	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(1)
	assert.False(t, ok)

	// Reusable after clear.
	c.Put(3, result(2, 1))
	_, ok = c.Get(3)
	assert.True(t, ok)
}

func TestCacheStats(t *testing.T) {
	c := New(10)
	c.Put(1, result(0, 1))
	c.Get(1)
	c.Get(1)
	c.Get(2)

	s := c.Stats()
	assert.Equal(t, uint64(2), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, 10, s.Capacity)
	assert.InDelta(t, 2.0/3.0, s.HitRate, 1e-9)
}

func TestFingerprintQueryOrderInsensitive(t *testing.T) {
	a := matching.NewRequest("GET", "/a", url.Values{"x": {"1"}, "y": {"2"}}, nil, nil)
	b := matching.NewRequest("GET", "/a", url.Values{"y": {"2"}, "x": {"1"}}, nil, nil)
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintSensitivity(t *testing.T) {
	base := matching.NewRequest("GET", "/a", url.Values{"x": {"1"}}, nil, nil)

	differentPath := matching.NewRequest("GET", "/b", url.Values{"x": {"1"}}, nil, nil)
	differentMethod := matching.NewRequest("POST", "/a", url.Values{"x": {"1"}}, nil, nil)
	differentBody := matching.NewRequest("GET", "/a", url.Values{"x": {"1"}}, nil, []byte("{}"))
	differentAuth := matching.NewRequest("GET", "/a", url.Values{"x": {"1"}},
		map[string]string{"Authorization": "Bearer t"}, nil)
	insignificantHeader := matching.NewRequest("GET", "/a", url.Values{"x": {"1"}},
		map[string]string{"User-Agent": "curl"}, nil)

	assert.NotEqual(t, Fingerprint(base), Fingerprint(differentPath))
	assert.NotEqual(t, Fingerprint(base), Fingerprint(differentMethod))
	assert.NotEqual(t, Fingerprint(base), Fingerprint(differentBody))
	assert.NotEqual(t, Fingerprint(base), Fingerprint(differentAuth))
	assert.Equal(t, Fingerprint(base), Fingerprint(insignificantHeader))
}

func TestFingerprintDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		req := matching.NewRequest("GET", fmt.Sprintf("/users/%d", i), nil, nil, nil)
		assert.Equal(t, Fingerprint(req), Fingerprint(req))
	}
}
