package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelection(t *testing.T) {
	candidates := []Candidate{{Index: 0}, {Index: 3}, {Index: 7}}

	tests := []struct {
		name     string
		reply    string
		want     *Selection
		wantErr  bool
		wantConf float64
	}{
		{name: "bare index", reply: "3", want: &Selection{Index: 3}},
		{name: "index with confidence", reply: "7 0.85", want: &Selection{Index: 7}, wantConf: 0.85},
		{name: "trailing period", reply: "0.", want: &Selection{Index: 0}},
		{name: "whitespace", reply: "  3  ", want: &Selection{Index: 3}},
		{name: "none", reply: "NONE", want: nil},
		{name: "none lowercase", reply: "none", want: nil},
		{name: "prose", reply: "the best match is 3", wantErr: true},
		{name: "unknown index", reply: "42", wantErr: true},
		{name: "empty", reply: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := parseSelection(tt.reply, candidates)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidResponse)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, sel)
				return
			}
			require.NotNil(t, sel)
			assert.Equal(t, tt.want.Index, sel.Index)
			assert.Equal(t, tt.wantConf, sel.Confidence)
		})
	}
}

func TestExtractResponseBody(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractResponseBody("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractResponseBody("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractResponseBody(`{"a":1}`))
	assert.Equal(t, "plain text", extractResponseBody("  plain text\n"))
}

func TestNewCollaborator(t *testing.T) {
	_, err := NewCollaborator(nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewCollaborator(&Config{Provider: "anthropic"})
	assert.ErrorIs(t, err, ErrAPIKeyMissing)

	_, err = NewCollaborator(&Config{Provider: "delphi"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	c, err := NewCollaborator(&Config{Provider: "anthropic", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())
}

func anthropicReply(t *testing.T, text string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": text}},
		})
	}
}

func TestAnthropicSelectMatch(t *testing.T) {
	srv := httptest.NewServer(anthropicReply(t, "1 0.9"))
	defer srv.Close()

	c, err := NewAnthropicCollaborator(&Config{APIKey: "sk-test", Endpoint: srv.URL})
	require.NoError(t, err)

	sel, err := c.SelectMatch(context.Background(),
		RequestDescription{Method: "GET", Path: "/users/9"},
		[]Candidate{{Index: 0, Path: "/orders"}, {Index: 1, Path: "/users/1"}})
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.Equal(t, 1, sel.Index)
	assert.Equal(t, 0.9, sel.Confidence)
}

func TestAnthropicSelectMatchNone(t *testing.T) {
	srv := httptest.NewServer(anthropicReply(t, "NONE"))
	defer srv.Close()

	c, err := NewAnthropicCollaborator(&Config{APIKey: "sk-test", Endpoint: srv.URL})
	require.NoError(t, err)

	sel, err := c.SelectMatch(context.Background(),
		RequestDescription{Method: "GET", Path: "/users/9"},
		[]Candidate{{Index: 0}})
	require.NoError(t, err)
	assert.Nil(t, sel)
}

func TestAnthropicServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewAnthropicCollaborator(&Config{APIKey: "sk-test", Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = c.SelectMatch(context.Background(), RequestDescription{}, []Candidate{{Index: 0}})
	require.Error(t, err)
	var perr *ProviderError
	assert.ErrorAs(t, err, &perr)
}

func TestAnthropicTimeout(t *testing.T) {
	// Sleep well past the client deadline, then return so the test server
	// can close its connection.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := NewAnthropicCollaborator(&Config{APIKey: "sk-test", Endpoint: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.SelectMatch(ctx, RequestDescription{}, []Candidate{{Index: 0}})
	assert.Error(t, err)
}

func TestAnthropicSynthesize(t *testing.T) {
	srv := httptest.NewServer(anthropicReply(t, "```json\n{\"id\":999,\"name\":\"Jane\"}\n```"))
	defer srv.Close()

	c, err := NewAnthropicCollaborator(&Config{APIKey: "sk-test", Endpoint: srv.URL})
	require.NoError(t, err)

	syn, err := c.Synthesize(context.Background(),
		RequestDescription{Method: "GET", Path: "/users/999"},
		Candidate{Index: 0, Status: 200},
		`{"id":123,"name":"John"}`, "")
	require.NoError(t, err)
	assert.Equal(t, 200, syn.Status)
	assert.Equal(t, `{"id":999,"name":"Jane"}`, syn.Body)
	assert.Equal(t, "application/json", syn.Headers["content-type"])
}
