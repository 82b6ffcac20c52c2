package diff

import (
	"sync"

	"github.com/getmockd/replayd/internal/id"
	"github.com/getmockd/replayd/internal/matching"
)

const (
	// DefaultCapacity is the number of records retained before the oldest
	// is discarded.
	DefaultCapacity = 500

	// DefaultThreshold is the score below which a successful match is
	// still recorded for review.
	DefaultThreshold = 0.8
)

// Tracker is a bounded, threadsafe log of low-confidence matches. When full,
// the oldest record is dropped to make room.
type Tracker struct {
	mu              sync.RWMutex
	records         []Record
	capacity        int
	threshold       float64
	acceptThreshold float64
}

// NewTracker creates a tracker retaining at most capacity records. A
// capacity of zero or less uses DefaultCapacity.
func NewTracker(capacity int, threshold, acceptThreshold float64) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Tracker{
		records:         make([]Record, 0, capacity),
		capacity:        capacity,
		threshold:       threshold,
		acceptThreshold: acceptThreshold,
	}
}

// Observe records the outcome if it is unmatched or scored below the
// diagnostic threshold. Confident matches are ignored.
func (t *Tracker) Observe(req *matching.Request, result matching.MatchResult) {
	t.mu.RLock()
	threshold := t.threshold
	accept := t.acceptThreshold
	t.mu.RUnlock()

	if result.Matched && result.Score.Total >= threshold {
		return
	}
	rec := buildRecord(req, result, accept)
	rec.ID = id.UUID()

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.records) >= t.capacity {
		copy(t.records, t.records[1:])
		t.records = t.records[:len(t.records)-1]
	}
	t.records = append(t.records, rec)
}

// SetThresholds applies new diagnostic and accept thresholds. Takes effect
// for every observation after the call returns.
func (t *Tracker) SetThresholds(threshold, acceptThreshold float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if threshold > 0 {
		t.threshold = threshold
	}
	t.acceptThreshold = acceptThreshold
}

// SetCapacity resizes the tracker, dropping the oldest records when the new
// capacity is smaller than the current backlog.
func (t *Tracker) SetCapacity(capacity int) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.capacity = capacity
	if excess := len(t.records) - capacity; excess > 0 {
		t.records = append(t.records[:0], t.records[excess:]...)
	}
}

// List returns the retained records, oldest first.
func (t *Tracker) List() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Latest returns up to n of the most recent records, newest first.
func (t *Tracker) Latest(n int) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n <= 0 || n > len(t.records) {
		n = len(t.records)
	}
	out := make([]Record, 0, n)
	for i := len(t.records) - 1; i >= len(t.records)-n; i-- {
		out = append(out, t.records[i])
	}
	return out
}

// Len reports the number of retained records.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Clear discards all retained records.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = t.records[:0]
}
