package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/getmockd/replayd/pkg/cache"
	"github.com/getmockd/replayd/pkg/capture"
	"github.com/getmockd/replayd/pkg/chaos"
	"github.com/getmockd/replayd/pkg/config"
)

// adminMux builds the admin surface, mounted under /__admin__.
func (s *Server) adminMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /config", s.handleGetConfig)
	mux.HandleFunc("POST /config", s.handleUpdateConfig)
	mux.HandleFunc("GET /captures", s.handleListCaptures)
	mux.HandleFunc("POST /captures", s.handleLoadCaptures)
	mux.HandleFunc("GET /recordings", s.handleListRecordings)
	mux.HandleFunc("DELETE /recordings", s.handleClearRecordings)
	mux.HandleFunc("GET /recordings/export", s.handleExportRecordings)
	mux.HandleFunc("GET /diffs", s.handleListDiffs)
	mux.HandleFunc("DELETE /diffs", s.handleClearDiffs)
	mux.HandleFunc("GET /cache", s.handleCacheStats)
	mux.HandleFunc("DELETE /cache", s.handleClearCache)
	mux.HandleFunc("GET /chaos", s.handleGetChaos)
	mux.HandleFunc("POST /chaos", s.handleUpdateChaos)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("GET /live", s.handleLiveRecent)
	mux.HandleFunc("GET /live/ws", s.handleLive)
	return mux
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorResponse is the admin error body.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	state := s.state
	captures := s.store.Len()
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"state":    state,
		"captures": captures,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	snap := s.metrics.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"requests": snap,
		"cache":    s.cacheStats(),
		"chaos":    s.chaos.Stats(),
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	cfg := s.cfg.Clone()
	s.mu.RUnlock()
	// The AI key never leaves the process.
	cfg.AI.APIKey = ""
	writeJSON(w, http.StatusOK, cfg)
}

// handleUpdateConfig applies a partial configuration update. When a field
// that affects match outcomes changes, the match cache is invalidated before
// the response is written, so no later request can observe a stale match.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var update config.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid config update: %v", err)
		return
	}

	s.mu.Lock()
	candidate := s.cfg.Clone()
	invalidate := update.Apply(candidate)
	if err := candidate.Validate(); err != nil {
		s.mu.Unlock()
		writeError(w, http.StatusUnprocessableEntity, "rejected config update: %v", err)
		return
	}
	s.cfg = candidate
	if update.Chaos != nil {
		s.chaos.Update(*update.Chaos)
	}
	if update.CacheCapacity != nil {
		// Resizing rebuilds the arena, which also drops every entry.
		s.cache = cache.New(*update.CacheCapacity)
	} else if invalidate {
		s.cache.Clear()
	}
	if update.DiffThreshold != nil || update.AcceptThreshold != nil {
		s.diffs.SetThresholds(candidate.DiffThreshold, candidate.AcceptThreshold)
	}
	if update.DiffCapacity != nil {
		s.diffs.SetCapacity(*update.DiffCapacity)
	}
	if update.RecordingCapacity != nil {
		s.recordings.SetCapacity(*update.RecordingCapacity)
	}
	cfg := s.cfg.Clone()
	s.mu.Unlock()

	s.log.Info("configuration updated", "cache_invalidated", invalidate)
	cfg.AI.APIKey = ""
	writeJSON(w, http.StatusOK, map[string]any{
		"config":            cfg,
		"cache_invalidated": invalidate,
	})
}

func (s *Server) handleListCaptures(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"total":    store.Len(),
		"captures": store.Summaries(),
	})
}

// handleLoadCaptures replaces the corpus with the posted session log.
func (s *Server) handleLoadCaptures(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body: %v", err)
		return
	}
	store, err := capture.LoadBytes(data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid session log: %v", err)
		return
	}
	s.ReplaceCorpus(store)
	writeJSON(w, http.StatusOK, map[string]any{"loaded": store.Len()})
}

func (s *Server) handleListRecordings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"total":      s.recordings.Len(),
		"recordings": s.recordings.List(),
	})
}

func (s *Server) handleClearRecordings(w http.ResponseWriter, _ *http.Request) {
	s.recordings.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportRecordings(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session")
	if session == "" {
		session = "replayd-export"
	}
	data, err := s.recordings.Export(session)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed: %v", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+session+`.json"`)
	_, _ = w.Write(data)
}

func (s *Server) handleListDiffs(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("latest") != "" {
		n := 10
		fmt.Sscanf(r.URL.Query().Get("latest"), "%d", &n)
		writeJSON(w, http.StatusOK, map[string]any{"diffs": s.diffs.Latest(n)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total": s.diffs.Len(),
		"diffs": s.diffs.List(),
	})
}

func (s *Server) handleClearDiffs(w http.ResponseWriter, _ *http.Request) {
	s.diffs.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cacheStats())
}

func (s *Server) handleClearCache(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	s.cache.Clear()
	s.mu.RUnlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetChaos(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"config": s.chaos.Config(),
		"stats":  s.chaos.Stats(),
	})
}

func (s *Server) handleUpdateChaos(w http.ResponseWriter, r *http.Request) {
	var cfg chaos.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid chaos config: %v", err)
		return
	}
	s.chaos.Update(cfg)
	s.mu.Lock()
	s.cfg.Chaos = cfg
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"config": s.chaos.Config()})
}

// handleReset clears all accumulated runtime state: metrics, recordings,
// diffs, cache, and chaos counters. Configuration and corpus stay.
func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.metrics.Reset()
	s.recordings.Clear()
	s.diffs.Clear()
	s.chaos.Reset()
	s.mu.RLock()
	s.cache.Clear()
	s.mu.RUnlock()
	s.log.Info("runtime state reset")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cacheStats() cache.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.Stats()
}
