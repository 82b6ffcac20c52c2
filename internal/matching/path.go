package matching

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// PathSimilarity scores two URL paths in [0,1]. Identical paths score 1.0.
// Paths with the same segment count are compared segment-wise with
// identifier folding, so /users/123 against /users/999 scores 1.0. Paths
// with different segment counts fall back to a dampened edit-distance ratio.
func PathSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}

	a = strings.TrimRight(a, "/")
	b = strings.TrimRight(b, "/")
	if a == b {
		return 1
	}

	segsA := splitPath(a)
	segsB := splitPath(b)

	if len(segsA) != len(segsB) {
		return textSimilarity(a, b) * 0.5
	}
	if len(segsA) == 0 {
		return 1
	}

	var matched int
	for i := range segsA {
		if SegmentsEquivalent(segsA[i], segsB[i]) {
			matched++
		}
	}
	return float64(matched) / float64(len(segsA))
}

// FoldedPath rewrites each identifier-like segment to its canonical
// placeholder, e.g. /users/123/orders/550e8400-... to
// /users/{numeric}/orders/{uuid}. Two requests hitting the same endpoint
// with different identifiers fold to the same string.
func FoldedPath(path string) string {
	segs := splitPath(path)
	if len(segs) == 0 {
		return "/"
	}
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = ClassifySegment(s).Canonical
	}
	return "/" + strings.Join(out, "/")
}

func splitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// textSimilarity is an edit-distance ratio in [0,1] for opaque strings.
func textSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	dist := levenshtein.ComputeDistance(a, b)
	if dist >= max {
		return 0
	}
	return 1 - float64(dist)/float64(max)
}
