package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Transformer mutates a response in place. Transformers must be pure with
// respect to the request: the same response and context always produce the
// same output, so cached matches stay valid.
type Transformer interface {
	Name() string
	Apply(resp *Response, reqCtx *RequestContext) error
}

type transformerFunc struct {
	name string
	fn   func(*Response, *RequestContext) error
}

func (t transformerFunc) Name() string { return t.name }
func (t transformerFunc) Apply(resp *Response, reqCtx *RequestContext) error {
	return t.fn(resp, reqCtx)
}

// TimestampHeader stamps the response with the serving time.
func TimestampHeader() Transformer {
	return transformerFunc{name: "timestamp-header", fn: func(resp *Response, _ *RequestContext) error {
		if resp.Headers == nil {
			resp.Headers = make(map[string]string)
		}
		resp.Headers["X-Served-At"] = strconv.FormatInt(time.Now().Unix(), 10)
		return nil
	}}
}

// CORSHeaders adds permissive CORS headers.
func CORSHeaders() Transformer {
	return transformerFunc{name: "cors-headers", fn: func(resp *Response, reqCtx *RequestContext) error {
		if resp.Headers == nil {
			resp.Headers = make(map[string]string)
		}
		origin := "*"
		if reqCtx != nil {
			if o, ok := reqCtx.Headers["origin"]; ok && o != "" {
				origin = o
			}
		}
		resp.Headers["Access-Control-Allow-Origin"] = origin
		resp.Headers["Access-Control-Allow-Methods"] = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
		resp.Headers["Access-Control-Allow-Headers"] = "Authorization, Content-Type"
		return nil
	}}
}

// PrettyJSON re-indents a JSON body. Non-JSON bodies pass through
// untouched.
func PrettyJSON() Transformer {
	return transformerFunc{name: "pretty-json", fn: func(resp *Response, _ *RequestContext) error {
		if !json.Valid(resp.Body) {
			return nil
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, resp.Body, "", "  "); err != nil {
			return err
		}
		resp.Body = buf.Bytes()
		return nil
	}}
}

// ReplaceIdentifiers substitutes the captured body's "id" field with the
// identifier from the request path, keeping replayed entities consistent
// with the URL the client actually asked for.
func ReplaceIdentifiers() Transformer {
	return transformerFunc{name: "replace-identifiers", fn: func(resp *Response, reqCtx *RequestContext) error {
		if reqCtx == nil || !json.Valid(resp.Body) {
			return nil
		}
		ids := reqCtx.Identifiers()
		if len(ids) == 0 {
			return nil
		}
		var obj map[string]any
		if err := json.Unmarshal(resp.Body, &obj); err != nil {
			return nil
		}
		if _, ok := obj["id"]; !ok {
			return nil
		}
		// The last path identifier is the entity the URL addresses.
		obj["id"] = ids[len(ids)-1]
		out, err := json.Marshal(obj)
		if err != nil {
			return err
		}
		resp.Body = out
		return nil
	}}
}

// exprEnv is the environment a user expression runs against.
type exprEnv struct {
	Status  int               `expr:"status"`
	Headers map[string]string `expr:"headers"`
	Body    string            `expr:"body"`
	Method  string            `expr:"method"`
	Path    string            `expr:"path"`
}

// ExprTransformer compiles a user expression once and runs it per request.
// The expression sees status, headers, body, method, and path, and its
// string result replaces the body.
type ExprTransformer struct {
	name    string
	program *vm.Program
}

// CompileExpr compiles an expression into a transformer. The expression
// must evaluate to a string.
func CompileExpr(name, expression string) (*ExprTransformer, error) {
	program, err := expr.Compile(expression, expr.Env(exprEnv{}), expr.AsKind(reflect.String))
	if err != nil {
		return nil, fmt.Errorf("compile transformer %q: %w", name, err)
	}
	return &ExprTransformer{name: name, program: program}, nil
}

func (t *ExprTransformer) Name() string { return t.name }

// Apply runs the compiled expression and replaces the body with its result.
func (t *ExprTransformer) Apply(resp *Response, reqCtx *RequestContext) error {
	env := exprEnv{
		Status:  resp.Status,
		Headers: resp.Headers,
		Body:    string(resp.Body),
	}
	if reqCtx != nil {
		env.Method = reqCtx.Method
		env.Path = reqCtx.Path
	}
	result, err := expr.Run(t.program, env)
	if err != nil {
		return fmt.Errorf("eval transformer %q: %w", t.name, err)
	}
	out, ok := result.(string)
	if !ok {
		return fmt.Errorf("transformer %q returned %T, want string", t.name, result)
	}
	resp.Body = []byte(out)
	return nil
}
