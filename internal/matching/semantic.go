package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/getmockd/replayd/pkg/ai"
)

// semanticCandidateLimit bounds how many candidates are sent to the
// collaborator per request.
const semanticCandidateLimit = 10

// defaultSemanticConfidence is assumed when the collaborator selects a
// candidate without reporting its own confidence.
const defaultSemanticConfidence = 0.95

// semanticMatch delegates candidate selection to the AI collaborator. Any
// timeout, transport error or malformed reply downgrades transparently to
// the fuzzy strategy; the caller never sees a collaborator failure.
func (m *Matcher) semanticMatch(ctx context.Context, req *Request, opts Options) MatchResult {
	if m.collab == nil {
		return m.fuzzyMatch(req, opts)
	}

	shortlist := m.shortlist(req)
	if len(shortlist) == 0 {
		return m.fuzzyMatch(req, opts)
	}

	candidates := make([]ai.Candidate, len(shortlist))
	for i, idx := range shortlist {
		ex := m.store.At(idx)
		candidates[i] = ai.Candidate{
			Index:  idx,
			Method: ex.Method,
			Path:   ex.Path(),
			Query:  ex.Query().Encode(),
			Body:   ex.RequestBody,
			Status: ex.Status,
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, opts.SemanticTimeout)
	defer cancel()

	sel, err := m.collab.SelectMatch(callCtx, describeRequest(req), candidates)
	if err != nil {
		m.log.Warn("semantic matching failed, falling back to fuzzy", "error", err)
		return m.fuzzyMatch(req, opts)
	}
	if sel == nil {
		// The collaborator explicitly answered "no match". Keep the fuzzy
		// best candidate for diagnostics but do not serve it.
		result := m.fuzzyMatch(req, opts)
		result.Matched = false
		result.Score.Strategy = StrategySemantic
		result.Reason = "no semantic match found"
		return result
	}
	if m.store.At(sel.Index) == nil || !containsIndex(shortlist, sel.Index) {
		m.log.Warn("semantic match returned unknown candidate, falling back to fuzzy",
			"index", sel.Index)
		return m.fuzzyMatch(req, opts)
	}

	confidence := sel.Confidence
	if confidence <= 0 {
		confidence = defaultSemanticConfidence
	}
	if confidence < opts.AcceptThreshold {
		result := m.fuzzyMatch(req, opts)
		result.Matched = false
		result.Score.Strategy = StrategySemantic
		result.Reason = fmt.Sprintf("semantic confidence %.2f below threshold %.2f",
			confidence, opts.AcceptThreshold)
		return result
	}

	return MatchResult{
		Matched:  true,
		Index:    sel.Index,
		Exchange: m.store.At(sel.Index),
		Score: ScoreBreakdown{
			Path: 1, Query: 1, Header: 1, Body: 1,
			Total:    confidence,
			Strategy: StrategySemantic,
		},
		Reason: fmt.Sprintf("semantic match (confidence: %.2f)", confidence),
	}
}

// shortlist ranks method-compatible candidates by quick path similarity and
// keeps the top few for the collaborator.
func (m *Matcher) shortlist(req *Request) []int {
	candidates := m.store.ByMethod(req.Method)
	if len(candidates) == 0 {
		return nil
	}
	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(candidates))
	for i, idx := range candidates {
		ranked[i] = scored{idx, PathSimilarity(req.Path, m.store.At(idx).Path())}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	n := len(ranked)
	if n > semanticCandidateLimit {
		n = semanticCandidateLimit
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = ranked[i].idx
	}
	return out
}

func describeRequest(req *Request) ai.RequestDescription {
	return ai.RequestDescription{
		Method:  req.Method,
		Path:    req.Path,
		Query:   req.Query.Encode(),
		Headers: req.Headers,
		Body:    string(req.Body),
	}
}

func containsIndex(indices []int, idx int) bool {
	for _, i := range indices {
		if i == idx {
			return true
		}
	}
	return false
}
