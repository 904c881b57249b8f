package match

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/waftester/crawlscan/pkg/httpclient"
	"github.com/waftester/crawlscan/pkg/regexcache"
)

// Matcher is a compiled Spec. It is immutable and safe for concurrent use.
type Matcher struct {
	spec   Spec
	kind   Kind
	loc    location
	negate bool

	// contains
	literal string
	// regex, and contains with ignorecase
	re *regexp.Regexp
	// status
	statuses []statusRange
	// exists
	header string
	// expr
	expr *expression
}

type statusRange struct{ lo, hi int }

// Compile validates spec and prepares it for evaluation.
func Compile(spec Spec) (*Matcher, error) {
	kind, err := ParseKind(spec.Kind)
	if err != nil {
		return nil, err
	}
	loc, err := parseLocation(spec.Location)
	if err != nil {
		return nil, err
	}

	m := &Matcher{
		spec:   spec,
		kind:   kind,
		loc:    loc,
		negate: spec.HasOption(OptNegate),
	}

	var flags regexcache.Flags
	if spec.HasOption(OptIgnoreCase) {
		flags |= regexcache.IgnoreCase
	}
	if spec.HasOption(OptMultiline) {
		flags |= regexcache.Multiline
	}
	if spec.HasOption(OptDotAll) {
		flags |= regexcache.DotAll
	}

	switch kind {
	case Contains:
		if spec.Pattern == "" {
			return nil, fmt.Errorf("%w: empty contains pattern", ErrInvalidSpec)
		}
		m.literal = spec.Pattern
		if flags&regexcache.IgnoreCase != 0 {
			m.re, err = regexcache.Get(regexp.QuoteMeta(spec.Pattern), regexcache.IgnoreCase)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
			}
		}
	case Regex:
		m.re, err = regexcache.Get(spec.Pattern, flags)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
		}
	case Status:
		m.statuses, err = parseStatuses(spec.Pattern)
		if err != nil {
			return nil, err
		}
		m.loc = location{part: partStatus}
	case Exists:
		m.header = strings.TrimSpace(spec.Pattern)
		if loc.part == partHeader {
			m.header = loc.header
		}
		if m.header == "" {
			return nil, fmt.Errorf("%w: exists needs a header name", ErrInvalidSpec)
		}
		m.loc = location{part: partHeader, header: http.CanonicalHeaderKey(m.header)}
	case Expr:
		m.expr, err = compileExpression(spec.Pattern)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package-level fixtures.
func MustCompile(spec Spec) *Matcher {
	m, err := Compile(spec)
	if err != nil {
		panic(err)
	}
	return m
}

// Spec returns the declarative form the matcher was compiled from.
func (m *Matcher) Spec() Spec { return m.spec }

// Kind returns the resolved kind.
func (m *Matcher) Kind() Kind { return m.kind }

// keyword returns the literal a response body must contain for the matcher
// to fire, or "" when no such literal exists.
func (m *Matcher) keyword() string {
	if m.kind != Contains || m.negate || m.re != nil || m.loc.part != partBody {
		return ""
	}
	return m.literal
}

// Evaluate applies the matcher to resp and returns the evidence, or nil.
func (m *Matcher) Evaluate(resp *httpclient.Response) *Result {
	if resp == nil {
		return nil
	}

	evidence, ok := m.test(resp)
	if m.negate {
		if ok {
			return nil
		}
		evidence, ok = m.spec.Pattern, true
	}
	if !ok {
		return nil
	}
	return &Result{
		Name:     m.spec.Name,
		Kind:     m.kind,
		Location: m.loc.String(),
		Evidence: evidence,
	}
}

func (m *Matcher) test(resp *httpclient.Response) (string, bool) {
	switch m.kind {
	case Contains:
		text := m.loc.text(resp)
		if m.re != nil {
			found := m.re.FindString(text)
			return found, found != ""
		}
		if strings.Contains(text, m.literal) {
			return m.literal, true
		}
	case Regex:
		sub := m.re.FindStringSubmatch(m.loc.text(resp))
		if sub == nil {
			return "", false
		}
		if len(sub) > 1 && sub[1] != "" {
			return sub[1], true
		}
		return sub[0], true
	case Status:
		for _, r := range m.statuses {
			if resp.StatusCode >= r.lo && resp.StatusCode <= r.hi {
				return strconv.Itoa(resp.StatusCode), true
			}
		}
	case Exists:
		if vals := resp.Header.Values(m.header); len(vals) > 0 {
			return strings.Join(vals, ", "), true
		}
	case Expr:
		if m.expr.eval(resp) {
			return m.spec.Pattern, true
		}
	}
	return "", false
}

// First returns the first non-nil result in list order, or nil.
func First(matchers []*Matcher, resp *httpclient.Response) *Result {
	for _, m := range matchers {
		if r := m.Evaluate(resp); r != nil {
			return r
		}
	}
	return nil
}

// parseStatuses accepts codes and classes like "200", "200,302" or "5xx".
func parseStatuses(s string) ([]statusRange, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '|' || r == ';'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty status list", ErrInvalidSpec)
	}

	out := make([]statusRange, 0, len(fields))
	for _, f := range fields {
		lower := strings.ToLower(f)
		if len(lower) == 3 && strings.HasSuffix(lower, "xx") && lower[0] >= '1' && lower[0] <= '5' {
			base := int(lower[0]-'0') * 100
			out = append(out, statusRange{lo: base, hi: base + 99})
			continue
		}
		code, err := strconv.Atoi(f)
		if err != nil || code < 100 || code > 599 {
			return nil, fmt.Errorf("%w: bad status %q", ErrInvalidSpec, f)
		}
		out = append(out, statusRange{lo: code, hi: code})
	}
	return out, nil
}
