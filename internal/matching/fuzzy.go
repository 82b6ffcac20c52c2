package matching

import (
	"fmt"

	"github.com/getmockd/replayd/pkg/capture"
)

// fuzzyMatch scores every method-compatible candidate across the four
// weighted dimensions and selects the maximum total. Ties break to the
// lowest corpus index so results are stable and deterministic. The best
// breakdown is returned even when it falls below the accept threshold.
func (m *Matcher) fuzzyMatch(req *Request, opts Options) MatchResult {
	candidates := m.store.ByMethod(req.Method)
	if len(candidates) == 0 {
		return noMethodCandidates(StrategyFuzzy, req.Method)
	}

	bestIdx := -1
	var best ScoreBreakdown
	for _, idx := range candidates {
		bd := scoreExchange(req, m.store.At(idx), opts.Weights)
		// Strict comparison keeps the earliest candidate on ties.
		if bestIdx == -1 || bd.Total > best.Total {
			bestIdx = idx
			best = bd
		}
	}

	result := MatchResult{
		Index:    bestIdx,
		Exchange: m.store.At(bestIdx),
		Score:    best,
	}
	if best.Total >= opts.AcceptThreshold {
		result.Matched = true
		result.Reason = fmt.Sprintf("fuzzy match (score: %.2f)", best.Total)
	} else {
		result.Reason = fmt.Sprintf("no candidate scored above %.2f, best was %.2f",
			opts.AcceptThreshold, best.Total)
	}
	return result
}

// scoreExchange computes the four component scores and their weighted total
// for one candidate. Each component and the total are in [0,1].
func scoreExchange(req *Request, ex *capture.Exchange, w Weights) ScoreBreakdown {
	bd := ScoreBreakdown{
		Path:     PathSimilarity(req.Path, ex.Path()),
		Query:    QuerySimilarity(req.Query, ex.Query()),
		Header:   HeaderSimilarity(req.Headers, ex.RequestHeaders),
		Body:     BodySimilarity(req.Body, []byte(ex.RequestBody)),
		Strategy: StrategyFuzzy,
	}
	bd.Total = bd.weightedTotal(w)
	return bd
}
