// Package capture holds recorded request/response exchanges and the
// read-only store the matching engine works against.
package capture

import (
	"net/url"
	"strings"
	"time"
)

// Exchange is one recorded request/response pair. Exchanges are created at
// load time and never mutated afterwards; the engine shares them freely
// across goroutines without synchronization.
type Exchange struct {
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	RequestHeaders  map[string]string `json:"req_headers,omitempty"`
	RequestBody     string            `json:"req_body,omitempty"`
	Status          int               `json:"status"`
	ResponseHeaders map[string]string `json:"resp_headers,omitempty"`
	ResponseBody    string            `json:"resp_body,omitempty"`
	Duration        time.Duration     `json:"-"`
	Timestamp       time.Time         `json:"-"`

	// Derived from URL during normalization.
	path  string
	query url.Values
}

// Path returns the URL path component, normalized at load time.
func (e *Exchange) Path() string { return e.path }

// Query returns the parsed query parameters. Callers must not mutate the
// returned values.
func (e *Exchange) Query() url.Values { return e.query }

// normalize parses the URL into its path and query components and lowercases
// header names so later comparisons are case-insensitive.
func (e *Exchange) normalize() {
	u, err := url.Parse(e.URL)
	if err != nil {
		// Unparseable URLs are kept as opaque paths so exact matching
		// can still compare them literally.
		e.path = e.URL
		e.query = url.Values{}
	} else {
		e.path = u.Path
		if e.path == "" {
			e.path = "/"
		}
		e.query = u.Query()
	}

	e.Method = strings.ToUpper(e.Method)
	e.RequestHeaders = lowerKeys(e.RequestHeaders)
}

func lowerKeys(m map[string]string) map[string]string {
	if len(m) == 0 {
		return m
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Summary is a compact view of an exchange for admin listings.
type Summary struct {
	Index     int       `json:"index"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}
