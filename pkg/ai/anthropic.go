package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	anthropicDefaultEndpoint = "https://api.anthropic.com/v1"
	anthropicAPIVersion      = "2023-06-01"
)

// AnthropicCollaborator implements Collaborator using Anthropic's messages
// API.
type AnthropicCollaborator struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
}

// NewAnthropicCollaborator creates an Anthropic-backed collaborator.
func NewAnthropicCollaborator(cfg *Config) (*AnthropicCollaborator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for Anthropic", ErrAPIKeyMissing)
	}

	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = anthropicDefaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &AnthropicCollaborator{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the provider name.
func (c *AnthropicCollaborator) Name() string { return ProviderAnthropic }

// SelectMatch asks the model which candidate best represents the request.
// Returns (nil, nil) when the model answers NONE.
func (c *AnthropicCollaborator) SelectMatch(ctx context.Context, req RequestDescription, candidates []Candidate) (*Selection, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	prompt := buildSelectPrompt(req, candidates)
	reply, err := c.callAPI(ctx, prompt)
	if err != nil {
		return nil, err
	}

	sel, err := parseSelection(reply, candidates)
	if err != nil {
		return nil, &ProviderError{
			Provider: ProviderAnthropic,
			Message:  "failed to parse selection",
			Cause:    err,
		}
	}
	return sel, nil
}

// Synthesize asks the model for a response body consistent with the
// captured schema.
func (c *AnthropicCollaborator) Synthesize(ctx context.Context, req RequestDescription, matched Candidate, responseBody, intent string) (*Synthesis, error) {
	prompt := buildSynthesisPrompt(req, responseBody, intent)
	reply, err := c.callAPI(ctx, prompt)
	if err != nil {
		return nil, err
	}

	body := extractResponseBody(reply)
	contentType := "application/json"
	if !json.Valid([]byte(body)) {
		contentType = "text/plain"
	}

	status := matched.Status
	if status == 0 {
		status = http.StatusOK
	}
	return &Synthesis{
		Status:  status,
		Headers: map[string]string{"content-type": contentType},
		Body:    body,
	}, nil
}

// Anthropic messages API request/response shapes.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicCollaborator) callAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		// Deterministic output keeps repeated matches consistent.
		Temperature: 0,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Provider: ProviderAnthropic, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: ProviderAnthropic, Message: "read response", Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{
			Provider: ProviderAnthropic,
			Message:  fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, truncate(string(data), 200)),
		}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &ProviderError{Provider: ProviderAnthropic, Message: "decode response", Cause: err}
	}
	if parsed.Error != nil {
		return "", &ProviderError{Provider: ProviderAnthropic, Message: parsed.Error.Message}
	}
	if len(parsed.Content) == 0 {
		return "", &ProviderError{Provider: ProviderAnthropic, Message: "empty response", Cause: ErrInvalidResponse}
	}
	return parsed.Content[0].Text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
