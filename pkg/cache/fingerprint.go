// Package cache memoizes match results behind a bounded FIFO cache keyed by
// a normalized request fingerprint.
package cache

import (
	"github.com/cespare/xxhash/v2"
	"github.com/getmockd/replayd/internal/matching"
)

// Fingerprint derives a deterministic cache key from the normalized method,
// path, sorted query, significant headers and body. Two requests that differ
// only in insignificant headers share a fingerprint and resolve identically
// for a fixed config.
func Fingerprint(req *matching.Request) uint64 {
	d := xxhash.New()
	sep := []byte{0}

	_, _ = d.WriteString(req.Method)
	_, _ = d.Write(sep)
	_, _ = d.WriteString(req.Path)
	_, _ = d.Write(sep)
	_, _ = d.WriteString(matching.NormalizeQuery(req.Query))
	_, _ = d.Write(sep)
	for _, h := range matching.SignificantHeaders() {
		if v, ok := req.Headers[h]; ok {
			_, _ = d.WriteString(h)
			_, _ = d.Write(sep)
			_, _ = d.WriteString(v)
			_, _ = d.Write(sep)
		}
	}
	if len(req.Body) > 0 {
		_, _ = d.Write(req.Body)
	}
	return d.Sum64()
}
