package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/replayd/pkg/capture"
	"github.com/getmockd/replayd/pkg/config"
)

func testConfig() *config.ServerConfig {
	cfg := config.Default()
	cfg.Port = 0 // let the listener pick a free port
	return cfg
}

func testStore(exchanges ...capture.Exchange) *capture.Store {
	return capture.NewStore(exchanges)
}

func TestLifecycle(t *testing.T) {
	s := NewServer(testConfig(), testStore())
	assert.Equal(t, StateStopped, s.State())

	require.NoError(t, s.Start())
	assert.Equal(t, StateRunning, s.State())
	assert.NotEmpty(t, s.Addr())

	assert.ErrorIs(t, s.Start(), ErrAlreadyRunning)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, StateStopped, s.State())

	assert.ErrorIs(t, s.Stop(ctx), ErrNotRunning)
}

func TestRestartAfterStop(t *testing.T) {
	s := NewServer(testConfig(), testStore())
	require.NoError(t, s.Start())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	require.NoError(t, s.Start())
	require.NoError(t, s.Stop(ctx))
}

func TestReplaceCorpusClearsCache(t *testing.T) {
	s := NewServer(testConfig(), testStore(
		capture.Exchange{Method: "GET", URL: "/api/a", Status: 200},
	))

	// Prime the cache through the pipeline.
	w := doRequest(s, "GET", "/api/a", nil, "")
	require.Equal(t, 200, w.Code)
	w = doRequest(s, "GET", "/api/a", nil, "")
	assert.Equal(t, "true", w.Header().Get("X-Replayd-Cache-Hit"))

	s.ReplaceCorpus(testStore(
		capture.Exchange{Method: "GET", URL: "/api/a", Status: 418},
	))

	w = doRequest(s, "GET", "/api/a", nil, "")
	assert.Equal(t, 418, w.Code)
	assert.Equal(t, "false", w.Header().Get("X-Replayd-Cache-Hit"))
}
