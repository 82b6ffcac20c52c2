package ai

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const maxPromptBody = 500

// buildSelectPrompt formats the incoming request and the candidate list for
// semantic selection. The model must answer with a bare candidate index or
// NONE.
func buildSelectPrompt(req RequestDescription, candidates []Candidate) string {
	var sb strings.Builder
	sb.WriteString("Analyze this incoming HTTP request and find the most semantically similar captured request.\n\n")
	sb.WriteString("INCOMING REQUEST:\n")
	fmt.Fprintf(&sb, "Method: %s\nPath: %s\nQuery: %s\nBody: %s\n\n",
		req.Method, req.Path, orNone(req.Query), orNone(truncate(req.Body, maxPromptBody)))

	sb.WriteString("CAPTURED REQUESTS (by index):\n")
	for _, c := range candidates {
		fmt.Fprintf(&sb, "[%d] %s %s\n    Query: %s\n    Body: %s\n    Response Status: %d\n\n",
			c.Index, c.Method, c.Path, orNone(c.Query), orNone(truncate(c.Body, 200)), c.Status)
	}

	sb.WriteString("Task: identify which captured request is most semantically similar to the incoming request.\n")
	sb.WriteString("Consider the endpoint's purpose, the data being sent or requested, and common API patterns.\n\n")
	sb.WriteString("Respond with ONLY the index number of the best matching capture, ")
	sb.WriteString("optionally followed by a confidence between 0 and 1 (e.g. \"3 0.85\").\n")
	sb.WriteString("If no good semantic match exists, respond with \"NONE\".\n")
	return sb.String()
}

// buildSynthesisPrompt asks the model for a response body shaped like the
// captured one but consistent with the live request.
func buildSynthesisPrompt(req RequestDescription, capturedBody, intent string) string {
	var sb strings.Builder
	sb.WriteString("You are generating a mock HTTP response for API testing.\n\n")
	sb.WriteString("INCOMING REQUEST:\n")
	fmt.Fprintf(&sb, "Method: %s\nPath: %s\nQuery: %s\nBody: %s\n\n",
		req.Method, req.Path, orNone(req.Query), orNone(truncate(req.Body, maxPromptBody)))
	fmt.Fprintf(&sb, "ORIGINAL CAPTURED RESPONSE (for structure):\n%s\n\n",
		orNone(truncate(capturedBody, maxPromptBody)))
	if intent != "" {
		fmt.Fprintf(&sb, "INTENT: %s\n\n", intent)
	}
	sb.WriteString("Generate a realistic response body with the same structure as the captured one, ")
	sb.WriteString("but with values consistent with the incoming request (identifiers, names, timestamps).\n")
	sb.WriteString("If the captured response is JSON, produce valid JSON.\n")
	sb.WriteString("Output ONLY the response body, no explanations.\n")
	return sb.String()
}

// parseSelection interprets the model's reply: "NONE" means no match, a
// bare index (optionally followed by a confidence) selects a candidate.
// Anything else is malformed.
func parseSelection(reply string, candidates []Candidate) (*Selection, error) {
	reply = strings.TrimSpace(reply)
	if strings.EqualFold(reply, "NONE") {
		return nil, nil
	}

	fields := strings.Fields(reply)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty reply", ErrInvalidResponse)
	}

	idx, err := strconv.Atoi(strings.TrimSuffix(fields[0], "."))
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a candidate index", ErrInvalidResponse, fields[0])
	}
	found := false
	for _, c := range candidates {
		if c.Index == idx {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: index %d not among candidates", ErrInvalidResponse, idx)
	}

	sel := &Selection{Index: idx}
	if len(fields) > 1 {
		if conf, err := strconv.ParseFloat(fields[1], 64); err == nil && conf > 0 && conf <= 1 {
			sel.Confidence = conf
		}
	}
	return sel, nil
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")

// extractResponseBody strips a markdown code fence when the model wraps its
// output in one.
func extractResponseBody(reply string) string {
	if m := codeFenceRe.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(reply)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
