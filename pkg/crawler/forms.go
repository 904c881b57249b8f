package crawler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/Masterminds/goutils"
	"github.com/PuerkitoBio/goquery"

	"github.com/waftester/crawlscan/pkg/defaults"
	"github.com/waftester/crawlscan/pkg/formdata"
)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Form is one extracted form submission.
type Form struct {
	Action string
	Values *formdata.Values
}

// Extractor pulls forms out of HTML and fills their fields. One extractor
// serves a whole crawl session, so every synthesized email address in the
// session is the same.
type Extractor struct {
	mu    sync.Mutex
	email string

	// Logger receives forms skipped for an unparseable action.
	// Nil means slog.Default().
	Logger *slog.Logger
}

// NewExtractor returns an extractor with a fresh session.
func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Extract returns the forms of doc in document order. Each action is
// resolved against base; a form without an action posts to base. Named
// inputs and textareas are collected in document order and the first field
// with a given name wins. With fillEmpty, empty non-hidden fields get
// synthesized values.
func (e *Extractor) Extract(doc []byte, base string, fillEmpty bool) ([]Form, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("crawler: base URL %q: %w", base, err)
	}
	root, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("crawler: parsing %s: %w", base, err)
	}

	var forms []Form
	root.Find("form").Each(func(_ int, sel *goquery.Selection) {
		action := baseURL.String()
		if raw, ok := sel.Attr("action"); ok {
			ref, err := url.Parse(strings.TrimSpace(raw))
			if err != nil {
				e.logger().Debug("form skipped",
					slog.String("page", base),
					slog.String("action", raw),
					slog.String("error", err.Error()),
				)
				return
			}
			action = baseURL.ResolveReference(ref).String()
		}

		values := formdata.New(4)
		sel.Find("input[name], textarea[name]").Each(func(_ int, field *goquery.Selection) {
			name, _ := field.Attr("name")
			if name == "" || values.Has(name) {
				return
			}
			values.Set(name, e.fieldValue(field, name, fillEmpty))
		})
		forms = append(forms, Form{Action: action, Values: values})
	})
	return forms, nil
}

func (e *Extractor) fieldValue(field *goquery.Selection, name string, fillEmpty bool) string {
	var literal string
	if goquery.NodeName(field) == "textarea" {
		literal = field.Text()
	} else {
		literal, _ = field.Attr("value")
	}
	if literal != "" {
		return literal
	}

	typ := strings.ToLower(strings.TrimSpace(field.AttrOr("type", "")))
	if !fillEmpty || typ == "hidden" {
		return ""
	}
	return e.Generate(typ, name)
}

// Generate synthesizes a value for a field of the given type and name:
// "1" for numeric types, the session email address for email fields (by
// type, or by a name containing "mail") and a fresh random token otherwise.
func (e *Extractor) Generate(fieldType, name string) string {
	switch {
	case fieldType == "email" || strings.Contains(strings.ToLower(name), "mail"):
		return e.sessionEmail()
	case fieldType == "number" || fieldType == "integer" || fieldType == "decimal" || fieldType == "range":
		return "1"
	default:
		return randomToken()
	}
}

func (e *Extractor) sessionEmail() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.email == "" {
		e.email = randomToken() + "@" + randomToken() + ".com"
	}
	return e.email
}

// randomToken returns a lowercase alphanumeric token.
func randomToken() string {
	s, err := goutils.CryptoRandom(defaults.RandomTokenSize, 0, 0, false, false, []rune(tokenAlphabet)...)
	if err != nil {
		// crypto/rand failing leaves nothing better to do than a fixed token
		return strings.Repeat("a", defaults.RandomTokenSize)
	}
	return s
}
