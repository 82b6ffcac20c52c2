package diff

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/replayd/internal/matching"
	"github.com/getmockd/replayd/pkg/capture"
)

func storedExchange(t *testing.T, method, url, body string) *capture.Exchange {
	t.Helper()
	store := capture.NewStore([]capture.Exchange{{
		Method:      method,
		URL:         url,
		RequestBody: body,
		Status:      200,
	}})
	require.Equal(t, 1, store.Len())
	return store.At(0)
}

func lowScoreResult(ex *capture.Exchange, total float64) matching.MatchResult {
	return matching.MatchResult{
		Matched:  true,
		Index:    0,
		Exchange: ex,
		Score:    matching.ScoreBreakdown{Total: total, Strategy: matching.StrategyFuzzy},
		Reason:   "fuzzy match",
	}
}

func TestObserveSkipsConfidentMatches(t *testing.T) {
	tr := NewTracker(10, 0.8, 0.7)
	ex := storedExchange(t, "GET", "/api/users/1", "")
	req := matching.NewRequest("GET", "/api/users/1", nil, nil, nil)

	tr.Observe(req, lowScoreResult(ex, 0.95))
	assert.Equal(t, 0, tr.Len())

	tr.Observe(req, lowScoreResult(ex, 0.75))
	assert.Equal(t, 1, tr.Len())
}

func TestObserveRecordsUnmatched(t *testing.T) {
	tr := NewTracker(10, 0.8, 0.7)
	req := matching.NewRequest("DELETE", "/api/users/1", nil, nil, nil)

	tr.Observe(req, matching.MatchResult{Reason: "no exchanges for method DELETE"})
	records := tr.List()
	require.Len(t, records, 1)
	assert.False(t, records[0].Matched)
	assert.Equal(t, "DELETE", records[0].Method)
	assert.Contains(t, records[0].Summary, "no candidate")
	assert.NotEmpty(t, records[0].ID)
}

func TestPathDiffSegmentChange(t *testing.T) {
	tr := NewTracker(10, 0.8, 0.7)
	ex := storedExchange(t, "GET", "/api/users/alice/posts", "")
	req := matching.NewRequest("GET", "/api/users/bob/posts", nil, nil, nil)

	tr.Observe(req, lowScoreResult(ex, 0.6))
	records := tr.List()
	require.Len(t, records, 1)
	require.NotNil(t, records[0].PathDiff)
	require.Len(t, records[0].PathDiff.Changes, 1)
	assert.Equal(t, 2, records[0].PathDiff.Changes[0].Index)
	assert.Equal(t, "bob", records[0].PathDiff.Changes[0].Incoming)
	assert.Equal(t, "alice", records[0].PathDiff.Changes[0].Matched)
	assert.Contains(t, records[0].Summary, "path segment changed")
}

func TestPathDiffFoldsIdentifiers(t *testing.T) {
	tr := NewTracker(10, 0.8, 0.7)
	ex := storedExchange(t, "GET", "/api/orders/123", "")
	req := matching.NewRequest("GET", "/api/orders/456", nil, nil, nil)

	tr.Observe(req, lowScoreResult(ex, 0.6))
	records := tr.List()
	require.Len(t, records, 1)
	require.NotNil(t, records[0].PathDiff)
	assert.Empty(t, records[0].PathDiff.Changes)
}

func TestQueryDiff(t *testing.T) {
	tr := NewTracker(10, 0.8, 0.7)
	ex := storedExchange(t, "GET", "/api/search?limit=10&page=1", "")
	req := matching.NewRequest("GET", "/api/search", map[string][]string{
		"limit": {"20"},
		"sort":  {"asc"},
	}, nil, nil)

	tr.Observe(req, lowScoreResult(ex, 0.6))
	records := tr.List()
	require.Len(t, records, 1)
	q := records[0].QueryDiff
	require.NotNil(t, q)
	assert.Equal(t, []string{"sort"}, q.Added)
	assert.Equal(t, []string{"page"}, q.Removed)
	require.Len(t, q.Changed, 1)
	assert.Equal(t, "limit", q.Changed[0].Param)
	assert.Equal(t, "20", q.Changed[0].Incoming)
	assert.Equal(t, "10", q.Changed[0].Matched)
}

func TestHeaderDiffSignificantOnly(t *testing.T) {
	tr := NewTracker(10, 0.8, 0.7)
	store := capture.NewStore([]capture.Exchange{{
		Method: "POST",
		URL:    "/api/users",
		RequestHeaders: map[string]string{
			"Content-Type": "application/xml",
			"X-Api-Key":    "key-1",
			"User-Agent":   "recorded-client",
		},
		Status: 200,
	}})
	req := matching.NewRequest("POST", "/api/users", nil, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer tok",
		"User-Agent":    "live-client",
	}, nil)

	tr.Observe(req, lowScoreResult(store.At(0), 0.6))
	records := tr.List()
	require.Len(t, records, 1)
	h := records[0].HeaderDiff
	require.NotNil(t, h)
	assert.Equal(t, []string{"authorization"}, h.Added)
	assert.Equal(t, []string{"x-api-key"}, h.Removed)
	require.Len(t, h.Changed, 1)
	assert.Equal(t, "content-type", h.Changed[0].Param)
	assert.Equal(t, "application/json", h.Changed[0].Incoming)
	assert.Equal(t, "application/xml", h.Changed[0].Matched)
}

func TestBodyDiffJSONKeys(t *testing.T) {
	tr := NewTracker(10, 0.8, 0.7)
	ex := storedExchange(t, "POST", "/api/users", `{"name":"alice","role":"admin"}`)
	req := matching.NewRequest("POST", "/api/users", nil, nil,
		[]byte(`{"name":"bob","email":"b@example.com"}`))

	tr.Observe(req, lowScoreResult(ex, 0.6))
	records := tr.List()
	require.Len(t, records, 1)
	b := records[0].BodyDiff
	require.NotNil(t, b)
	assert.True(t, b.Differs)
	assert.Equal(t, []string{"email"}, b.AddedKeys)
	assert.Equal(t, []string{"role"}, b.RemovedKeys)
	assert.Equal(t, []string{"name"}, b.ChangedKeys)
}

func TestCapacityDropsOldest(t *testing.T) {
	tr := NewTracker(3, 0.8, 0.7)
	for i := 0; i < 5; i++ {
		req := matching.NewRequest("GET", fmt.Sprintf("/miss/%c", 'a'+rune(i)), nil, nil, nil)
		tr.Observe(req, matching.MatchResult{Reason: "no match"})
	}
	records := tr.List()
	require.Len(t, records, 3)
	assert.Equal(t, "/miss/c", records[0].Path)
	assert.Equal(t, "/miss/e", records[2].Path)
}

func TestLatestNewestFirst(t *testing.T) {
	tr := NewTracker(10, 0.8, 0.7)
	for i := 0; i < 4; i++ {
		req := matching.NewRequest("GET", fmt.Sprintf("/miss/%c", 'a'+rune(i)), nil, nil, nil)
		tr.Observe(req, matching.MatchResult{Reason: "no match"})
	}
	latest := tr.Latest(2)
	require.Len(t, latest, 2)
	assert.Equal(t, "/miss/d", latest[0].Path)
	assert.Equal(t, "/miss/c", latest[1].Path)
}

func TestSetThresholdsTakesEffect(t *testing.T) {
	tr := NewTracker(10, 0.8, 0.7)
	ex := storedExchange(t, "GET", "/api/users/1", "")
	req := matching.NewRequest("GET", "/api/users/1", nil, nil, nil)

	tr.Observe(req, lowScoreResult(ex, 0.9))
	require.Equal(t, 0, tr.Len())

	// Raising the diagnostic bar makes the same score recordable.
	tr.SetThresholds(0.95, 0.7)
	tr.Observe(req, lowScoreResult(ex, 0.9))
	assert.Equal(t, 1, tr.Len())
}

func TestSetCapacityDropsOldest(t *testing.T) {
	tr := NewTracker(10, 0.8, 0.7)
	for i := 0; i < 5; i++ {
		req := matching.NewRequest("GET", fmt.Sprintf("/miss/%c", 'a'+rune(i)), nil, nil, nil)
		tr.Observe(req, matching.MatchResult{Reason: "no match"})
	}

	tr.SetCapacity(2)
	records := tr.List()
	require.Len(t, records, 2)
	assert.Equal(t, "/miss/d", records[0].Path)
	assert.Equal(t, "/miss/e", records[1].Path)

	// The new bound holds for later observations.
	req := matching.NewRequest("GET", "/miss/f", nil, nil, nil)
	tr.Observe(req, matching.MatchResult{Reason: "no match"})
	assert.Equal(t, 2, tr.Len())
}

func TestClear(t *testing.T) {
	tr := NewTracker(10, 0.8, 0.7)
	req := matching.NewRequest("GET", "/miss", nil, nil, nil)
	tr.Observe(req, matching.MatchResult{Reason: "no match"})
	require.Equal(t, 1, tr.Len())
	tr.Clear()
	assert.Equal(t, 0, tr.Len())
}
