// Package match evaluates declarative match specs against HTTP responses.
//
// A Spec is the decoded form found in script files. Compile validates it
// and prepares everything evaluation needs (regular expressions, status
// lists, expression bytecode) so that a compiled Matcher is immutable and
// safe to share between scanner workers.
package match

import (
	"fmt"
	"strings"
)

// Kind selects the predicate a spec applies.
type Kind string

const (
	// Contains is a substring search. Aliases: string, substring.
	Contains Kind = "contains"

	// Regex is a regular-expression search.
	Regex Kind = "regex"

	// Status compares the response status code with a list.
	Status Kind = "status"

	// Exists checks for the presence of a header.
	Exists Kind = "exists"

	// Expr evaluates a tengo boolean expression.
	Expr Kind = "expr"
)

var kindAliases = map[string]Kind{
	"contains":  Contains,
	"string":    Contains,
	"substring": Contains,
	"word":      Contains,
	"regex":     Regex,
	"regexp":    Regex,
	"status":    Status,
	"exists":    Exists,
	"expr":      Expr,
	"dsl":       Expr,
}

// ParseKind resolves a kind name or alias, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidSpec, s)
	}
	return k, nil
}

// Option names accepted in Spec.Options.
const (
	OptIgnoreCase = "ignorecase"
	OptMultiline  = "multiline"
	OptDotAll     = "dotall"
	OptNegate     = "negate"
)

// Spec is one declarative predicate as written in a script file.
type Spec struct {
	Kind     string   `json:"type" yaml:"type"`
	Pattern  string   `json:"match" yaml:"match"`
	Location string   `json:"location,omitempty" yaml:"location,omitempty"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Options  []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// HasOption reports whether opt is set, case-insensitively.
func (s Spec) HasOption(opt string) bool {
	for _, o := range s.Options {
		if strings.EqualFold(strings.TrimSpace(o), opt) {
			return true
		}
	}
	return false
}

// Result is the evidence of a successful match.
type Result struct {
	Name     string `json:"name,omitempty"`
	Kind     Kind   `json:"kind"`
	Location string `json:"location"`
	Evidence string `json:"evidence"`
}
