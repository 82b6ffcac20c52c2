package matching

import (
	"net/url"
	"sort"
	"strings"
)

// QuerySimilarity scores two query parameter sets in [0,1]: key overlap
// (Jaccard) and value equality over the shared keys, weighted evenly.
// Two empty sets are a perfect match; one empty set against one non-empty
// set scores 0.
func QuerySimilarity(a, b url.Values) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	common, union := 0, 0
	valueMatches := 0
	seen := make(map[string]bool, len(a)+len(b))
	for k := range a {
		seen[k] = true
		union++
		if vb, ok := b[k]; ok {
			common++
			if equalValues(a[k], vb) {
				valueMatches++
			}
		}
	}
	for k := range b {
		if !seen[k] {
			union++
		}
	}

	keyScore := float64(common) / float64(union)
	valueScore := 0.0
	if common > 0 {
		valueScore = float64(valueMatches) / float64(common)
	}
	return keyScore*0.5 + valueScore*0.5
}

// NormalizeQuery renders query parameters into a canonical string with keys
// sorted, and values sorted within each key, so parameter order never
// affects exact matching or cache fingerprints.
func NormalizeQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		vals := append([]string(nil), q[k]...)
		sort.Strings(vals)
		for j, v := range vals {
			if i > 0 || j > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}

func equalValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
