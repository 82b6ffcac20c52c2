// Package matching selects the recorded exchange that best represents an
// incoming request.
//
// Four strategies are supported: exact (normalized literal equality),
// pattern (wildcard path templates), fuzzy (weighted multi-dimensional
// similarity scoring, the default), and semantic (delegation to an external
// AI collaborator with a deterministic fuzzy fallback). Candidates are
// always hard-filtered by HTTP method before any scoring takes place, and
// the matcher never returns an error for "no good candidate": absence of a
// match is an ordinary result, not a failure.
package matching
