// Package diff records low-confidence matches for human review. The
// tracker is purely observational: nothing here ever influences which
// response gets served.
package diff

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/getmockd/replayd/internal/matching"
)

// Record is one low-confidence match worth surfacing.
type Record struct {
	ID         string     `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	Method     string     `json:"method"`
	Path       string     `json:"path"`
	Query      string     `json:"query,omitempty"`
	MatchedURL string     `json:"matched_url,omitempty"`
	Score      float64    `json:"score"`
	Matched    bool       `json:"matched"`
	Reason     string     `json:"reason"`
	Summary    string     `json:"summary"`
	PathDiff   *PathDiff   `json:"path_diff,omitempty"`
	QueryDiff  *QueryDiff  `json:"query_diff,omitempty"`
	HeaderDiff *HeaderDiff `json:"header_diff,omitempty"`
	BodyDiff   *BodyDiff   `json:"body_diff,omitempty"`
}

// PathDiff describes segment-level path differences.
type PathDiff struct {
	Incoming string          `json:"incoming"`
	Matched  string          `json:"matched"`
	Changes  []SegmentChange `json:"changes,omitempty"`
}

// SegmentChange is one differing path segment.
type SegmentChange struct {
	Index    int    `json:"index"`
	Incoming string `json:"incoming"`
	Matched  string `json:"matched"`
}

// QueryDiff describes parameter-level query differences.
type QueryDiff struct {
	Added   []string      `json:"added,omitempty"`
	Removed []string      `json:"removed,omitempty"`
	Changed []ParamChange `json:"changed,omitempty"`
}

// ParamChange is one query parameter whose value differs.
type ParamChange struct {
	Param    string `json:"param"`
	Incoming string `json:"incoming"`
	Matched  string `json:"matched"`
}

// HeaderDiff describes differences in the significant request headers.
type HeaderDiff struct {
	Added   []string      `json:"added,omitempty"`
	Removed []string      `json:"removed,omitempty"`
	Changed []ParamChange `json:"changed,omitempty"`
}

// BodyDiff describes top-level JSON key differences, or just flags that the
// bodies differ when they are not JSON objects.
type BodyDiff struct {
	Differs     bool     `json:"differs"`
	AddedKeys   []string `json:"added_keys,omitempty"`
	RemovedKeys []string `json:"removed_keys,omitempty"`
	ChangedKeys []string `json:"changed_keys,omitempty"`
}

// buildRecord assembles the structural diff between an incoming request and
// the best-matching exchange (which may be nil when no candidate existed).
func buildRecord(req *matching.Request, result matching.MatchResult, acceptThreshold float64) Record {
	rec := Record{
		Timestamp: time.Now(),
		Method:    req.Method,
		Path:      req.Path,
		Query:     req.Query.Encode(),
		Score:     result.Score.Total,
		Matched:   result.Matched,
		Reason:    result.Reason,
	}

	if result.Exchange == nil {
		rec.Summary = fmt.Sprintf("no candidate for %s %s", req.Method, req.Path)
		return rec
	}

	ex := result.Exchange
	rec.MatchedURL = ex.URL
	rec.PathDiff = diffPaths(req.Path, ex.Path())
	rec.QueryDiff = diffQueries(req.Query, ex.Query())
	rec.HeaderDiff = diffHeaders(req.Headers, ex.RequestHeaders)
	rec.BodyDiff = diffBodies(req.Body, []byte(ex.RequestBody))
	rec.Summary = summarize(rec, acceptThreshold)
	return rec
}

// summarize produces the one-line human-readable description shown in
// listings, leading with the most significant structural difference.
func summarize(rec Record, acceptThreshold float64) string {
	if rec.PathDiff != nil && len(rec.PathDiff.Changes) > 0 {
		ch := rec.PathDiff.Changes[0]
		return fmt.Sprintf("path segment changed: %s -> %s", ch.Matched, ch.Incoming)
	}
	if q := rec.QueryDiff; q != nil {
		if len(q.Added) > 0 {
			return fmt.Sprintf("query parameter added: %s", strings.Join(q.Added, ", "))
		}
		if len(q.Removed) > 0 {
			return fmt.Sprintf("query parameter missing: %s", strings.Join(q.Removed, ", "))
		}
		if len(q.Changed) > 0 {
			return fmt.Sprintf("query parameter changed: %s", q.Changed[0].Param)
		}
	}
	if b := rec.BodyDiff; b != nil && b.Differs {
		if len(b.AddedKeys)+len(b.RemovedKeys)+len(b.ChangedKeys) > 0 {
			return fmt.Sprintf("body keys differ (added: %d, removed: %d, changed: %d)",
				len(b.AddedKeys), len(b.RemovedKeys), len(b.ChangedKeys))
		}
		return "body content differs"
	}
	if !rec.Matched {
		return fmt.Sprintf("no candidate scored above %.2f, best was %.2f",
			acceptThreshold, rec.Score)
	}
	return fmt.Sprintf("low-confidence match (score %.2f)", rec.Score)
}

func diffPaths(incoming, matched string) *PathDiff {
	d := &PathDiff{Incoming: incoming, Matched: matched}
	in := splitSegments(incoming)
	ma := splitSegments(matched)
	n := len(in)
	if len(ma) < n {
		n = len(ma)
	}
	for i := 0; i < n; i++ {
		if !matching.SegmentsEquivalent(in[i], ma[i]) {
			d.Changes = append(d.Changes, SegmentChange{Index: i, Incoming: in[i], Matched: ma[i]})
		}
	}
	for i := n; i < len(in); i++ {
		d.Changes = append(d.Changes, SegmentChange{Index: i, Incoming: in[i]})
	}
	for i := n; i < len(ma); i++ {
		d.Changes = append(d.Changes, SegmentChange{Index: i, Matched: ma[i]})
	}
	return d
}

func diffQueries(incoming, matched url.Values) *QueryDiff {
	d := &QueryDiff{}
	for k := range incoming {
		if _, ok := matched[k]; !ok {
			d.Added = append(d.Added, k)
		} else if incoming.Get(k) != matched.Get(k) {
			d.Changed = append(d.Changed, ParamChange{
				Param: k, Incoming: incoming.Get(k), Matched: matched.Get(k),
			})
		}
	}
	for k := range matched {
		if _, ok := incoming[k]; !ok {
			d.Removed = append(d.Removed, k)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Slice(d.Changed, func(i, j int) bool { return d.Changed[i].Param < d.Changed[j].Param })
	if len(d.Added)+len(d.Removed)+len(d.Changed) == 0 {
		return nil
	}
	return d
}

// diffHeaders compares only the headers that participate in scoring; the
// long tail of client headers is noise here.
func diffHeaders(incoming, matched map[string]string) *HeaderDiff {
	d := &HeaderDiff{}
	for _, h := range matching.SignificantHeaders() {
		iv, iok := incoming[h]
		mv, mok := matched[h]
		switch {
		case iok && !mok:
			d.Added = append(d.Added, h)
		case !iok && mok:
			d.Removed = append(d.Removed, h)
		case iok && mok && iv != mv:
			d.Changed = append(d.Changed, ParamChange{Param: h, Incoming: iv, Matched: mv})
		}
	}
	if len(d.Added)+len(d.Removed)+len(d.Changed) == 0 {
		return nil
	}
	return d
}

func diffBodies(incoming, matched []byte) *BodyDiff {
	if len(incoming) == 0 && len(matched) == 0 {
		return nil
	}
	if string(incoming) == string(matched) {
		return nil
	}
	d := &BodyDiff{Differs: true}

	var inObj, maObj map[string]any
	if json.Unmarshal(incoming, &inObj) == nil && json.Unmarshal(matched, &maObj) == nil {
		for k := range inObj {
			if _, ok := maObj[k]; !ok {
				d.AddedKeys = append(d.AddedKeys, k)
			} else if !equalJSON(inObj[k], maObj[k]) {
				d.ChangedKeys = append(d.ChangedKeys, k)
			}
		}
		for k := range maObj {
			if _, ok := inObj[k]; !ok {
				d.RemovedKeys = append(d.RemovedKeys, k)
			}
		}
		sort.Strings(d.AddedKeys)
		sort.Strings(d.RemovedKeys)
		sort.Strings(d.ChangedKeys)
	}
	return d
}

func equalJSON(a, b any) bool {
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	return string(ja) == string(jb)
}

func splitSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
