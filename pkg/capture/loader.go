package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SessionLog is the on-disk capture format: a session header plus the
// ordered list of recorded exchanges.
type SessionLog struct {
	Session   string        `json:"session,omitempty"`
	Timestamp string        `json:"timestamp,omitempty"`
	Requests  []rawExchange `json:"requests"`
}

type rawExchange struct {
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	RequestHeaders  map[string]string `json:"req_headers,omitempty"`
	RequestBody     string            `json:"req_body,omitempty"`
	Status          int               `json:"status"`
	ResponseHeaders map[string]string `json:"resp_headers,omitempty"`
	ResponseBody    string            `json:"resp_body,omitempty"`
	DurationMS      float64           `json:"duration_ms,omitempty"`
	Timestamp       string            `json:"timestamp,omitempty"`
}

// LoadFile reads a capture corpus from a session log file.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture file: %w", err)
	}
	store, err := LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse capture file %s: %w", path, err)
	}
	return store, nil
}

// LoadBytes parses a capture corpus from JSON. Both the session log object
// form and a bare array of exchanges are accepted.
func LoadBytes(data []byte) (*Store, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty capture data")
	}

	var raws []rawExchange
	if trimmed[0] == '[' {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, err
		}
	} else {
		var log SessionLog
		if err := json.Unmarshal(data, &log); err != nil {
			return nil, err
		}
		raws = log.Requests
	}

	exchanges := make([]Exchange, len(raws))
	for i, r := range raws {
		exchanges[i] = Exchange{
			Method:          r.Method,
			URL:             r.URL,
			RequestHeaders:  r.RequestHeaders,
			RequestBody:     r.RequestBody,
			Status:          r.Status,
			ResponseHeaders: r.ResponseHeaders,
			ResponseBody:    r.ResponseBody,
			Duration:        time.Duration(r.DurationMS * float64(time.Millisecond)),
		}
		if r.Timestamp != "" {
			if ts, err := time.Parse(time.RFC3339, r.Timestamp); err == nil {
				exchanges[i].Timestamp = ts
			}
		}
	}
	return NewStore(exchanges), nil
}

// ExportSessionLog serializes exchanges back into the session log format.
func ExportSessionLog(session string, exchanges []Exchange) ([]byte, error) {
	log := SessionLog{
		Session:   session,
		Timestamp: time.Now().Format(time.RFC3339),
		Requests:  make([]rawExchange, len(exchanges)),
	}
	for i, e := range exchanges {
		log.Requests[i] = rawExchange{
			Method:          e.Method,
			URL:             e.URL,
			RequestHeaders:  e.RequestHeaders,
			RequestBody:     e.RequestBody,
			Status:          e.Status,
			ResponseHeaders: e.ResponseHeaders,
			ResponseBody:    e.ResponseBody,
			DurationMS:      float64(e.Duration) / float64(time.Millisecond),
		}
		if !e.Timestamp.IsZero() {
			log.Requests[i].Timestamp = e.Timestamp.Format(time.RFC3339)
		}
	}
	return json.MarshalIndent(log, "", "  ")
}
