// Package script loads declarative detection scripts and sorts them into
// the three execution categories of the pipeline.
//
// A script file is a JSON (or YAML) document:
//
//	{
//	  "name": "sql-error",
//	  "find": "always",
//	  "run_at": "response",
//	  "request": "query",
//	  "data": {"inject_value": "'"},
//	  "matches": [{"type": "regex", "match": "SQL syntax.*MySQL", "location": "body", "options": ["ignorecase"]}]
//	}
//
// A non-empty request field makes the script active. Without one, run_at
// "response" makes it passive and run_at "fs" makes it a filesystem probe.
package script

import (
	"fmt"
	"strings"

	"github.com/waftester/crawlscan/pkg/finding"
	"github.com/waftester/crawlscan/pkg/formdata"
	"github.com/waftester/crawlscan/pkg/httpclient"
	"github.com/waftester/crawlscan/pkg/match"
)

// FindPolicy controls how many findings a script may contribute.
type FindPolicy string

const (
	// FindOnce allows one finding per run.
	FindOnce FindPolicy = "once"
	// FindAlways records every distinct match.
	FindAlways FindPolicy = "always"
)

// InjectType says where an active script places its payload.
type InjectType string

const (
	InjectQuery  InjectType = "query"
	InjectForm   InjectType = "form"
	InjectParam  InjectType = "param"
	InjectHeader InjectType = "header"
)

var injectAliases = map[string]InjectType{
	"query":   InjectQuery,
	"url":     InjectQuery,
	"get":     InjectQuery,
	"form":    InjectForm,
	"data":    InjectForm,
	"post":    InjectForm,
	"body":    InjectForm,
	"param":   InjectParam,
	"params":  InjectParam,
	"all":     InjectParam,
	"header":  InjectHeader,
	"headers": InjectHeader,
}

// ParseInjectType resolves an injection type or alias.
func ParseInjectType(s string) (InjectType, error) {
	t, ok := injectAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: unknown request type %q", ErrInvalidScript, s)
	}
	return t, nil
}

// Injection modes.
const (
	ModeAppend  = "append"
	ModeReplace = "replace"
)

// ProbeData describes the request a filesystem probe issues.
type ProbeData struct {
	URL     string            `json:"url" yaml:"url"`
	Method  string            `json:"method,omitempty" yaml:"method,omitempty"`
	Data    *formdata.Values  `json:"data,omitempty" yaml:"data,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Options []string          `json:"options,omitempty" yaml:"options,omitempty"`
}

// HasOption reports whether opt is set, case-insensitively.
func (p *ProbeData) HasOption(opt string) bool {
	for _, o := range p.Options {
		if strings.EqualFold(strings.TrimSpace(o), opt) {
			return true
		}
	}
	return false
}

// InjectionData describes the payload an active script injects.
type InjectionData struct {
	Value   string   `json:"inject_value" yaml:"inject_value"`
	Headers []string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Mode    string   `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// Replace reports whether the payload replaces the original value instead
// of being appended to it.
func (d *InjectionData) Replace() bool {
	return strings.EqualFold(d.Mode, ModeReplace)
}

// Script is a loaded, validated detection script. It is immutable.
type Script struct {
	Name        string
	Find        FindPolicy
	Category    finding.Category
	Severity    finding.Severity
	Description string
	Source      string

	// Inject is set for active scripts.
	Inject InjectType
	// Probe is set for filesystem probes.
	Probe *ProbeData
	// Injection is set for active scripts.
	Injection *InjectionData

	Matchers []*match.Matcher
}

// Once reports whether the script contributes at most one finding.
func (s *Script) Once() bool {
	return s.Find == FindOnce
}

// Match returns the first result among the script's matchers, in order.
func (s *Script) Match(resp *httpclient.Response) *match.Result {
	return match.First(s.Matchers, resp)
}
