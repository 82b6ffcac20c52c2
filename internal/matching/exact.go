package matching

// exactMatch accepts only literal equality of normalized method, path and
// query. Query parameters are order-insensitive; identifiers are not folded.
func (m *Matcher) exactMatch(req *Request) MatchResult {
	candidates := m.store.ByMethod(req.Method)
	if len(candidates) == 0 {
		return noMethodCandidates(StrategyExact, req.Method)
	}

	wantQuery := NormalizeQuery(req.Query)
	for _, idx := range candidates {
		ex := m.store.At(idx)
		if ex.Path() != req.Path {
			continue
		}
		if NormalizeQuery(ex.Query()) != wantQuery {
			continue
		}
		return MatchResult{
			Matched:  true,
			Index:    idx,
			Exchange: ex,
			Score: ScoreBreakdown{
				Path: 1, Query: 1, Header: 1, Body: 1, Total: 1,
				Strategy: StrategyExact,
			},
			Reason: "exact match",
		}
	}
	return unmatched(StrategyExact, "no exact match found")
}
