package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/replayd/pkg/recording"
)

func TestLiveFeedStreamsServedEntries(t *testing.T) {
	s := NewServer(testConfig(), userCorpus())
	require.NoError(t, s.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	}()

	wsURL := "ws://" + s.Addr() + "/__admin__/live/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	// Serve one request; it must arrive on the feed.
	httpResp, err := http.Get("http://" + s.Addr() + "/api/orders?limit=10")
	require.NoError(t, err)
	httpResp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var entry recording.Entry
	require.NoError(t, conn.ReadJSON(&entry))
	assert.Equal(t, recording.SourceMatch, entry.Source)
	assert.True(t, strings.HasPrefix(entry.Exchange.URL, "/api/orders"))
}

func TestLiveFeedBackfillsRecentEntries(t *testing.T) {
	s := NewServer(testConfig(), userCorpus())
	require.NoError(t, s.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	}()

	// Serve before subscribing; the entry lands in the backlog.
	httpResp, err := http.Get("http://" + s.Addr() + "/api/orders?limit=10")
	require.NoError(t, err)
	httpResp.Body.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+s.Addr()+"/__admin__/live/ws", nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var entry recording.Entry
	require.NoError(t, conn.ReadJSON(&entry))
	assert.True(t, strings.HasPrefix(entry.Exchange.URL, "/api/orders"))
}

func TestLiveRecentListing(t *testing.T) {
	s := NewServer(testConfig(), userCorpus())

	rr := doRequest(s, "GET", "/api/orders?limit=10", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(s, "GET", "/__admin__/live", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Total   int               `json:"total"`
		Entries []recording.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	assert.True(t, strings.HasPrefix(body.Entries[0].Exchange.URL, "/api/orders"))
}

func TestLiveFeedSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	feed := newLiveFeed(4)
	ch, cancel := feed.subscribe()
	defer cancel()

	// Overflow the subscriber queue; publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < liveSubscriberBuffer*2; i++ {
			feed.publish(recording.Entry{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Len(t, ch, liveSubscriberBuffer)
}
