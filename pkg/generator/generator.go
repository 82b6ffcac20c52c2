// Package generator turns a matched exchange into the response actually
// served. Five modes trade fidelity against flexibility, from byte-exact
// replay up to model-synthesized bodies.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getmockd/replayd/pkg/ai"
	"github.com/getmockd/replayd/pkg/capture"
)

// Mode selects how a response body is produced.
type Mode string

const (
	// ModeStatic replays the captured response verbatim.
	ModeStatic Mode = "static"

	// ModeTemplate substitutes {{name}} bindings from the incoming request
	// into the captured body and headers.
	ModeTemplate Mode = "template"

	// ModeTransform runs the configured transformer chain over the static
	// response.
	ModeTransform Mode = "transform"

	// ModeAI asks the collaborator to synthesize a body consistent with
	// the captured response's shape.
	ModeAI Mode = "ai"

	// ModeIntelligent renders static-then-template and escalates to the
	// collaborator only when the rendered body is structurally
	// insufficient for the incoming request.
	ModeIntelligent Mode = "intelligent"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeStatic, "":
		return ModeStatic, nil
	case ModeTemplate:
		return ModeTemplate, nil
	case ModeTransform:
		return ModeTransform, nil
	case ModeAI:
		return ModeAI, nil
	case ModeIntelligent:
		return ModeIntelligent, nil
	default:
		return "", fmt.Errorf("unknown generation mode %q", s)
	}
}

// Response is what the engine writes back to the client.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// hopByHopHeaders never survive replay; the transport recomputes them.
var hopByHopHeaders = map[string]bool{
	"content-length":    true,
	"transfer-encoding": true,
	"connection":        true,
	"keep-alive":        true,
}

// Generator produces responses from matched exchanges.
type Generator struct {
	collab     ai.Collaborator
	transforms []Transformer
	log        *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithCollaborator attaches the model collaborator used by the ai and
// intelligent modes.
func WithCollaborator(c ai.Collaborator) Option {
	return func(g *Generator) { g.collab = c }
}

// WithTransformers sets the transformer chain for transform mode, applied
// in order.
func WithTransformers(ts ...Transformer) Option {
	return func(g *Generator) { g.transforms = ts }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(g *Generator) { g.log = log }
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces the response for a matched exchange. Modes that cannot
// complete (a failing collaborator, a failing transformer) degrade to the
// static rendition rather than erroring: serving the captured bytes is
// always acceptable.
func (g *Generator) Generate(ctx context.Context, ex *capture.Exchange, reqCtx *RequestContext, mode Mode) Response {
	switch mode {
	case ModeTemplate:
		return g.template(ex, reqCtx)
	case ModeTransform:
		return g.transform(ex, reqCtx)
	case ModeAI:
		return g.synthesize(ctx, ex, reqCtx)
	case ModeIntelligent:
		return g.intelligent(ctx, ex, reqCtx)
	default:
		return g.static(ex)
	}
}

// static replays the captured response byte for byte, minus hop-by-hop
// headers.
func (g *Generator) static(ex *capture.Exchange) Response {
	headers := make(map[string]string, len(ex.ResponseHeaders))
	for k, v := range ex.ResponseHeaders {
		if hopByHopHeaders[strings.ToLower(k)] {
			continue
		}
		headers[k] = v
	}
	return Response{
		Status:  ex.Status,
		Headers: headers,
		Body:    []byte(ex.ResponseBody),
	}
}

// template renders {{name}} bindings into the static response's body and
// header values.
func (g *Generator) template(ex *capture.Exchange, reqCtx *RequestContext) Response {
	resp := g.static(ex)
	bindings := reqCtx.Bindings()
	resp.Body = []byte(render(string(resp.Body), bindings))
	for k, v := range resp.Headers {
		resp.Headers[k] = render(v, bindings)
	}
	return resp
}

// transform applies the transformer chain to the static response. A failing
// transformer is logged and skipped; the chain keeps going.
func (g *Generator) transform(ex *capture.Exchange, reqCtx *RequestContext) Response {
	resp := g.static(ex)
	for _, t := range g.transforms {
		if err := t.Apply(&resp, reqCtx); err != nil {
			g.log.Warn("transformer failed, skipping",
				"transformer", t.Name(), "error", err)
		}
	}
	return resp
}

// synthesize asks the collaborator for a body consistent with the captured
// response. Any failure falls back to static.
func (g *Generator) synthesize(ctx context.Context, ex *capture.Exchange, reqCtx *RequestContext) Response {
	if g.collab == nil {
		return g.static(ex)
	}

	matched := ai.Candidate{
		Method: ex.Method,
		Path:   ex.Path(),
		Query:  ex.Query().Encode(),
		Body:   ex.RequestBody,
		Status: ex.Status,
	}
	syn, err := g.collab.Synthesize(ctx, reqCtx.Describe(), matched, ex.ResponseBody, "")
	if err != nil || syn == nil {
		g.log.Warn("synthesis failed, serving static response", "error", err)
		return g.static(ex)
	}

	resp := g.static(ex)
	if syn.Status != 0 {
		resp.Status = syn.Status
	}
	for k, v := range syn.Headers {
		if !hopByHopHeaders[strings.ToLower(k)] {
			resp.Headers[k] = v
		}
	}
	if syn.Body != "" {
		resp.Body = []byte(syn.Body)
	}
	return resp
}

// intelligent serves the template rendition when it already carries the
// request's identifiers, and escalates to the collaborator only when it
// does not.
func (g *Generator) intelligent(ctx context.Context, ex *capture.Exchange, reqCtx *RequestContext) Response {
	resp := g.template(ex, reqCtx)
	if g.collab == nil || structurallySufficient(resp.Body, reqCtx) {
		return resp
	}
	g.log.Debug("rendered body missing request identifiers, escalating",
		"path", reqCtx.Path)
	return g.synthesize(ctx, ex, reqCtx)
}
