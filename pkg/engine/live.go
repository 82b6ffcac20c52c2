package engine

import (
	"context"
	"net/http"
	"sync"
	"time"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/getmockd/replayd/pkg/recording"
)

const (
	// liveFeedCapacity is how many recent entries a new subscriber is
	// backfilled with.
	liveFeedCapacity = 50

	// liveWriteTimeout bounds each write to a subscriber; a stalled
	// client is dropped rather than blocking the feed.
	liveWriteTimeout = 5 * time.Second

	// liveSubscriberBuffer is the per-subscriber queue depth.
	liveSubscriberBuffer = 64
)

// liveFeed fans served entries out to WebSocket subscribers and keeps a
// small ring for backfilling new connections.
type liveFeed struct {
	mu     sync.Mutex
	recent []recording.Entry
	subs   map[chan recording.Entry]struct{}
	closed bool
}

func newLiveFeed(capacity int) *liveFeed {
	return &liveFeed{
		recent: make([]recording.Entry, 0, capacity),
		subs:   make(map[chan recording.Entry]struct{}),
	}
}

// publish fans an entry out to all subscribers. A subscriber whose queue is
// full misses the entry rather than blocking the serving path.
func (f *liveFeed) publish(e recording.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if len(f.recent) >= cap(f.recent) {
		copy(f.recent, f.recent[1:])
		f.recent = f.recent[:len(f.recent)-1]
	}
	f.recent = append(f.recent, e)

	for ch := range f.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// subscribe registers a new subscriber and returns its queue pre-loaded
// with the recent backlog.
func (f *liveFeed) subscribe() (chan recording.Entry, func()) {
	ch := make(chan recording.Entry, liveSubscriberBuffer)

	f.mu.Lock()
	for _, e := range f.recent {
		select {
		case ch <- e:
		default:
		}
	}
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
	}
	return ch, cancel
}

// snapshot returns a copy of the recent ring, oldest first.
func (f *liveFeed) snapshot() []recording.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recording.Entry, len(f.recent))
	copy(out, f.recent)
	return out
}

// closeAll drops every subscriber, ending their streams.
func (f *liveFeed) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for ch := range f.subs {
		close(ch)
		delete(f.subs, ch)
	}
}

// handleLiveRecent serves the recent ring as a plain JSON listing for
// clients that don't want a streaming connection.
func (s *Server) handleLiveRecent(w http.ResponseWriter, _ *http.Request) {
	entries := s.live.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"total":   len(entries),
		"entries": entries,
	})
}

// handleLive upgrades the connection and streams served entries as JSON
// messages until the client disconnects.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Warn("live feed upgrade failed", "error", err)
		return
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	ch, cancel := s.live.subscribe()
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-ch:
			if !ok {
				return
			}
			writeCtx, done := context.WithTimeout(ctx, liveWriteTimeout)
			err := wsjson.Write(writeCtx, conn, entry)
			done()
			if err != nil {
				return
			}
		}
	}
}
