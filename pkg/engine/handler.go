package engine

import (
	"io"
	"net/http"
	"time"

	"github.com/getmockd/replayd/internal/matching"
	"github.com/getmockd/replayd/pkg/capture"
	"github.com/getmockd/replayd/pkg/generator"
	"github.com/getmockd/replayd/pkg/recording"
)

// maxBodyBytes bounds how much of a request body the pipeline reads.
const maxBodyBytes = 10 << 20

// handleReplay is the per-request pipeline: cache, match, diff, chaos,
// generate, delay, record.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.metrics.RecordRequest()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	req := matching.FromHTTP(r, body)

	s.mu.RLock()
	matcher := s.matcher
	matchCache := s.cache
	opts := s.matchOptions()
	mode := s.mode
	fallbackStatus := s.cfg.FallbackStatus
	s.mu.RUnlock()

	key := cacheKey(req)
	result, hit := matchCache.Get(key)
	if hit {
		s.metrics.RecordCacheHit()
	} else {
		result = matcher.FindMatch(r.Context(), req, opts)
		matchCache.Put(key, result)
	}

	s.diffs.Observe(req, result)

	// An injected failure replaces generation entirely; it does not count
	// toward matched or unmatched traffic.
	if fail, status := s.chaos.ShouldFail(); fail {
		s.metrics.RecordChaosFailure()
		if !s.chaosSleep(r) {
			return
		}
		s.writeChaosFailure(w, r, status, start)
		return
	}

	if !result.Matched {
		s.metrics.RecordUnmatched()
		if !s.chaosSleep(r) {
			return
		}
		s.writeFallback(w, req, result, fallbackStatus, hit, start)
		return
	}
	s.metrics.RecordMatched()

	reqCtx := generator.NewRequestContext(req)
	resp := s.gen.Generate(r.Context(), result.Exchange, reqCtx, mode)
	if !s.chaosSleep(r) {
		return
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("X-Replayd-Matched", "true")
	w.Header().Set("X-Replayd-Match-Score", formatScore(result.Score.Total))
	w.Header().Set("X-Replayd-Strategy", string(result.Score.Strategy))
	w.Header().Set("X-Replayd-Cache-Hit", formatBool(hit))
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)

	source := recording.SourceMatch
	if hit {
		source = recording.SourceCache
	}
	s.record(recording.Entry{
		Source:   source,
		Matched:  true,
		Score:    result.Score.Total,
		Strategy: string(result.Score.Strategy),
		Duration: time.Since(start),
		Exchange: capture.Exchange{
			Method:          req.Method,
			URL:             requestURL(req),
			RequestHeaders:  req.Headers,
			RequestBody:     string(req.Body),
			Status:          resp.Status,
			ResponseHeaders: resp.Headers,
			ResponseBody:    string(resp.Body),
		},
	})

	s.log.Debug("request served",
		"method", req.Method,
		"path", req.Path,
		"status", resp.Status,
		"score", result.Score.Total,
		"strategy", result.Score.Strategy,
		"cache_hit", hit,
	)
}

// chaosSleep applies the configured artificial delay before the response is
// written. It reports false when the client went away while waiting.
func (s *Server) chaosSleep(r *http.Request) bool {
	delay := s.chaos.Delay()
	if delay <= 0 {
		return true
	}
	select {
	case <-time.After(delay):
		return true
	case <-r.Context().Done():
		return false
	}
}

// writeChaosFailure serves an injected failure and records it.
func (s *Server) writeChaosFailure(w http.ResponseWriter, r *http.Request, status int, start time.Time) {
	body := []byte(`{"error":"injected failure"}`)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Replayd-Chaos", "true")
	w.WriteHeader(status)
	_, _ = w.Write(body)

	s.record(recording.Entry{
		Source:   recording.SourceChaos,
		Duration: time.Since(start),
		Exchange: capture.Exchange{
			Method:       r.Method,
			URL:          r.URL.RequestURI(),
			Status:       status,
			ResponseBody: string(body),
		},
	})
	s.log.Debug("chaos failure injected", "method", r.Method, "path", r.URL.Path, "status", status)
}

// record appends to the recording log and publishes to the live feed,
// unless recording is switched off.
func (s *Server) record(e recording.Entry) {
	s.mu.RLock()
	enabled := s.cfg.RecordingEnabled
	s.mu.RUnlock()
	if !enabled {
		return
	}
	stored := s.recordings.Append(e)
	s.live.publish(stored)
}

func requestURL(req *matching.Request) string {
	if enc := req.Query.Encode(); enc != "" {
		return req.Path + "?" + enc
	}
	return req.Path
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
