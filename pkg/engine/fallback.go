package engine

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/getmockd/replayd/internal/matching"
	"github.com/getmockd/replayd/pkg/cache"
	"github.com/getmockd/replayd/pkg/capture"
	"github.com/getmockd/replayd/pkg/recording"
)

// closestCandidateLimit bounds how many near misses the fallback payload
// carries.
const closestCandidateLimit = 3

// fallbackPayload is the diagnostic body served when nothing matches.
type fallbackPayload struct {
	Error       string             `json:"error"`
	Method      string             `json:"method"`
	Path        string             `json:"path"`
	Reason      string             `json:"reason"`
	Closest     []closestCandidate `json:"closest_candidates,omitempty"`
	Suggestions []string           `json:"suggestions,omitempty"`
}

type closestCandidate struct {
	Method string  `json:"method"`
	URL    string  `json:"url"`
	Score  float64 `json:"score"`
}

// writeFallback serves the configured fallback status with a diagnostic
// payload listing the closest recorded exchanges and what to try next.
func (s *Server) writeFallback(w http.ResponseWriter, req *matching.Request, result matching.MatchResult, status int, cacheHit bool, start time.Time) {
	payload := fallbackPayload{
		Error:   "no matching capture",
		Method:  req.Method,
		Path:    req.Path,
		Reason:  result.Reason,
		Closest: s.closestCandidates(req),
	}
	payload.Suggestions = suggestions(req, payload.Closest, s.store.Methods())

	body, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Replayd-Matched", "false")
	w.Header().Set("X-Replayd-Match-Score", formatScore(result.Score.Total))
	w.Header().Set("X-Replayd-Strategy", string(result.Score.Strategy))
	w.Header().Set("X-Replayd-Cache-Hit", formatBool(cacheHit))
	w.WriteHeader(status)
	_, _ = w.Write(body)

	s.record(recording.Entry{
		Source:   recording.SourceFallback,
		Score:    result.Score.Total,
		Strategy: string(result.Score.Strategy),
		Duration: time.Since(start),
		Exchange: capture.Exchange{
			Method:       req.Method,
			URL:          requestURL(req),
			RequestBody:  string(req.Body),
			Status:       status,
			ResponseBody: string(body),
		},
	})
	s.log.Debug("no match, served fallback",
		"method", req.Method, "path", req.Path, "reason", result.Reason)
}

// closestCandidates scores every capture against the request, regardless of
// method, and returns the top few.
func (s *Server) closestCandidates(req *matching.Request) []closestCandidate {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	type scored struct {
		summary capture.Summary
		score   float64
	}
	ranked := make([]scored, 0, store.Len())
	for _, sum := range store.Summaries() {
		ex := store.At(sum.Index)
		score := matching.PathSimilarity(req.Path, ex.Path())
		if ex.Method == req.Method {
			score += 0.1
		}
		ranked = append(ranked, scored{sum, score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	n := len(ranked)
	if n > closestCandidateLimit {
		n = closestCandidateLimit
	}
	out := make([]closestCandidate, 0, n)
	for _, r := range ranked[:n] {
		out = append(out, closestCandidate{
			Method: r.summary.Method,
			URL:    r.summary.URL,
			Score:  r.score,
		})
	}
	return out
}

// suggestions derives actionable hints from the near misses.
func suggestions(req *matching.Request, closest []closestCandidate, methods []string) []string {
	var out []string

	methodKnown := false
	for _, m := range methods {
		if m == req.Method {
			methodKnown = true
			break
		}
	}
	if !methodKnown && len(methods) > 0 {
		out = append(out, fmt.Sprintf("no captures use method %s; recorded methods: %v", req.Method, methods))
	}
	for _, c := range closest {
		if c.Score >= 0.5 && c.Method != req.Method {
			out = append(out, fmt.Sprintf("similar capture exists as %s %s; check the request method", c.Method, c.URL))
		}
	}
	if len(closest) == 0 {
		out = append(out, "capture corpus is empty; load a session log via POST /__admin__/captures")
	}
	return out
}

func cacheKey(req *matching.Request) uint64 {
	return cache.Fingerprint(req)
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 2, 64)
}
