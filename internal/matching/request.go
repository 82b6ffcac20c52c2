package matching

import (
	"net/http"
	"net/url"
	"strings"
)

// Request is the matcher's view of a live inbound request. It is built once
// per request and discarded after the response is produced.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string // lowercase keys
	Body    []byte
}

// NewRequest builds a Request from its components, normalizing the method
// and header keys.
func NewRequest(method, path string, query url.Values, headers map[string]string, body []byte) *Request {
	if query == nil {
		query = url.Values{}
	}
	lowered := make(map[string]string, len(headers))
	for k, v := range headers {
		lowered[strings.ToLower(k)] = v
	}
	if path == "" {
		path = "/"
	}
	return &Request{
		Method:  strings.ToUpper(method),
		Path:    path,
		Query:   query,
		Headers: lowered,
		Body:    body,
	}
}

// FromHTTP builds a Request from a net/http request and its pre-read body.
// Multi-valued headers keep their first value; matching only ever inspects a
// small significant subset.
func FromHTTP(r *http.Request, body []byte) *Request {
	headers := make(map[string]string, len(r.Header))
	for k, vs := range r.Header {
		if len(vs) > 0 {
			headers[strings.ToLower(k)] = vs[0]
		}
	}
	return NewRequest(r.Method, r.URL.Path, r.URL.Query(), headers, body)
}
