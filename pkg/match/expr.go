package match

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/waftester/crawlscan/pkg/httpclient"
)

// exprModules are the only tengo stdlib modules expressions may import.
// No file I/O, no network, no OS access.
var exprModules = stdlib.GetModuleMap("text", "fmt", "math")

const (
	exprMaxAllocs = 10_000_000
	exprTimeout   = 2 * time.Second
	exprResultVar = "__result__"
)

// exprPrelude imports every allowed module under its own name so that
// expressions can call text.contains and friends directly.
const exprPrelude = "text := import(\"text\")\nfmt := import(\"fmt\")\nmath := import(\"math\")\n"

// expression is a pre-compiled tengo expression. Variables available to the
// expression, besides the text, fmt and math modules: status (int), body (string), url (string) and headers (map of
// lower-cased header name to comma-joined values).
type expression struct {
	compiled *tengo.Compiled
}

func compileExpression(src string) (*expression, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrExpression)
	}

	script := tengo.NewScript([]byte(fmt.Sprintf("%s%s := (%s)\n", exprPrelude, exprResultVar, src)))
	script.SetImports(exprModules)
	script.SetMaxAllocs(exprMaxAllocs)
	for name, v := range map[string]interface{}{
		"status":  0,
		"body":    "",
		"url":     "",
		"headers": map[string]interface{}{},
	} {
		if err := script.Add(name, v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExpression, err)
		}
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrExpression, src, err)
	}
	return &expression{compiled: compiled}, nil
}

// eval runs a clone of the compiled expression. Runtime errors, panics and
// timeouts count as no match.
func (e *expression) eval(resp *httpclient.Response) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
		}
	}()

	headers := make(map[string]interface{}, len(resp.Header))
	for k, vals := range resp.Header {
		headers[strings.ToLower(k)] = strings.Join(vals, ", ")
	}

	c := e.compiled.Clone()
	if c.Set("status", resp.StatusCode) != nil ||
		c.Set("body", string(resp.Body)) != nil ||
		c.Set("url", resp.URL) != nil ||
		c.Set("headers", headers) != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), exprTimeout)
	defer cancel()
	if err := c.RunContext(ctx); err != nil {
		return false
	}
	return c.Get(exprResultVar).Bool()
}
