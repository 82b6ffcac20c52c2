package generator

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/getmockd/replayd/internal/id"
)

// templateRegex matches {{name}} with optional inner whitespace.
var templateRegex = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)

// render substitutes bindings into a template string. Built-in names are
// evaluated when no binding shadows them; an unknown name is left in place
// so the gap is visible in the served body.
func render(template string, bindings map[string]string) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	return templateRegex.ReplaceAllStringFunc(template, func(match string) string {
		sub := templateRegex.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		name := strings.TrimSpace(sub[1])
		if val, ok := bindings[name]; ok {
			return val
		}
		if val, ok := builtin(name); ok {
			return val
		}
		return match
	})
}

// builtin evaluates the names available in every template.
func builtin(name string) (string, bool) {
	switch name {
	case "now":
		return time.Now().UTC().Format(time.RFC3339), true
	case "timestamp":
		return strconv.FormatInt(time.Now().Unix(), 10), true
	case "uuid":
		return id.UUID(), true
	default:
		return "", false
	}
}
