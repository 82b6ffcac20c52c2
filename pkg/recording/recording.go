// Package recording keeps a bounded log of every exchange the server
// actually served, for later export as a session log.
package recording

import (
	"sync"
	"time"

	"github.com/getmockd/replayd/internal/id"
	"github.com/getmockd/replayd/pkg/capture"
)

// DefaultCapacity is the number of entries retained before the oldest is
// discarded.
const DefaultCapacity = 1000

// Source says where a served response came from.
type Source string

const (
	SourceMatch    Source = "match"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
	SourceChaos    Source = "chaos"
)

// Entry is one served request/response pair.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Source    Source        `json:"source"`
	Matched   bool          `json:"matched"`
	Score     float64       `json:"score"`
	Strategy  string        `json:"strategy,omitempty"`
	Duration  time.Duration `json:"duration_ns"`

	Exchange capture.Exchange `json:"exchange"`
}

// Log is a threadsafe bounded FIFO of served entries.
type Log struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
}

// NewLog creates a log retaining at most capacity entries. A capacity of
// zero or less uses DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
	}
}

// Append records a served entry, assigning it an ID and timestamp. The
// oldest entry is dropped when the log is full.
func (l *Log) Append(e Entry) Entry {
	e.ID = id.UUID()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, e)
	return e
}

// SetCapacity resizes the log, dropping the oldest entries when the new
// capacity is smaller than the current backlog.
func (l *Log) SetCapacity(capacity int) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.capacity = capacity
	if excess := len(l.entries) - capacity; excess > 0 {
		l.entries = append(l.entries[:0], l.entries[excess:]...)
	}
}

// List returns the retained entries, oldest first.
func (l *Log) List() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear discards all retained entries.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}

// Export serializes the retained entries as a session log that can be
// loaded back as a capture corpus.
func (l *Log) Export(session string) ([]byte, error) {
	l.mu.RLock()
	exchanges := make([]capture.Exchange, len(l.entries))
	for i, e := range l.entries {
		exchanges[i] = e.Exchange
	}
	l.mu.RUnlock()
	return capture.ExportSessionLog(session, exchanges)
}
