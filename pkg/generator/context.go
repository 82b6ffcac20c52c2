package generator

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ohler55/ojg/oj"

	"github.com/getmockd/replayd/internal/matching"
	"github.com/getmockd/replayd/pkg/ai"
)

// RequestContext carries everything about the incoming request that
// generation can draw on.
type RequestContext struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	Body    []byte
}

// NewRequestContext builds a RequestContext from the matcher's request view.
func NewRequestContext(req *matching.Request) *RequestContext {
	return &RequestContext{
		Method:  req.Method,
		Path:    req.Path,
		Query:   req.Query,
		Headers: req.Headers,
		Body:    req.Body,
	}
}

// Describe converts the context into the collaborator's request shape.
func (rc *RequestContext) Describe() ai.RequestDescription {
	return ai.RequestDescription{
		Method:  rc.Method,
		Path:    rc.Path,
		Query:   rc.Query.Encode(),
		Headers: rc.Headers,
		Body:    string(rc.Body),
	}
}

// Bindings builds the substitution set for template rendering: query
// parameters by name, recognized path identifiers as "id" and "uuid", and
// top-level scalar fields of a JSON request body. Later sources win on name
// collisions, so an explicit body field overrides a query parameter.
func (rc *RequestContext) Bindings() map[string]string {
	bindings := make(map[string]string)

	for key := range rc.Query {
		bindings[key] = rc.Query.Get(key)
	}

	for _, seg := range strings.Split(strings.Trim(rc.Path, "/"), "/") {
		if seg == "" {
			continue
		}
		switch matching.ClassifySegment(seg).Kind {
		case matching.KindUUID:
			bindings["uuid"] = seg
			bindings["id"] = seg
		case matching.KindNumeric, matching.KindObjectID, matching.KindULID:
			bindings["id"] = seg
		}
	}

	if len(rc.Body) > 0 {
		if parsed, err := oj.Parse(rc.Body); err == nil {
			if obj, ok := parsed.(map[string]any); ok {
				for key, val := range obj {
					switch v := val.(type) {
					case string:
						bindings[key] = v
					case bool, int64, float64:
						bindings[key] = fmt.Sprintf("%v", v)
					}
				}
			}
		}
	}

	return bindings
}

// Identifiers returns the recognized identifier values present in the
// request path, used to judge structural sufficiency of a rendered body.
func (rc *RequestContext) Identifiers() []string {
	var ids []string
	for _, seg := range strings.Split(strings.Trim(rc.Path, "/"), "/") {
		if seg == "" {
			continue
		}
		if matching.ClassifySegment(seg).Kind != matching.KindLiteral {
			ids = append(ids, seg)
		}
	}
	return ids
}

// structurallySufficient reports whether every identifier in the request
// path appears in the rendered body. A body with none of the request's
// identifiers is presumed to describe a different entity.
func structurallySufficient(body []byte, rc *RequestContext) bool {
	ids := rc.Identifiers()
	if len(ids) == 0 {
		return true
	}
	text := string(body)
	for _, id := range ids {
		if !strings.Contains(text, id) {
			return false
		}
	}
	return true
}
