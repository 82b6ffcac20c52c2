package matching

// significantHeaders is the fixed set of request headers that participate
// in fuzzy scoring. Everything else (user agents, tracing headers, cookies)
// varies too much between a recording session and live traffic to carry
// signal.
var significantHeaders = []string{"authorization", "content-type", "accept", "x-api-key"}

// SignificantHeaders returns the header names that participate in scoring.
func SignificantHeaders() []string {
	out := make([]string, len(significantHeaders))
	copy(out, significantHeaders)
	return out
}

// HeaderSimilarity scores the significant request headers in [0,1]. A header
// present on both sides with an equal value counts fully; differing values
// earn partial credit from textual similarity. Headers absent from both
// sides are ignored, and if neither side carries any significant header the
// score is 1.0.
func HeaderSimilarity(incoming, captured map[string]string) float64 {
	var total, sum float64
	for _, h := range significantHeaders {
		iv, iok := incoming[h]
		cv, cok := captured[h]
		if !iok && !cok {
			continue
		}
		total++
		switch {
		case iok && cok && iv == cv:
			sum++
		case iok && cok:
			sum += textSimilarity(iv, cv) * 0.5
		}
	}
	if total == 0 {
		return 1
	}
	return sum / total
}
