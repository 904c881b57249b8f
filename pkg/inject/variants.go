package inject

import (
	"net/http"
	"net/url"

	"github.com/waftester/crawlscan/pkg/formdata"
	"github.com/waftester/crawlscan/pkg/httpclient"
	"github.com/waftester/crawlscan/pkg/script"
)

// DefaultHeaders are injected when a header script names none.
var DefaultHeaders = []string{"User-Agent", "Referer", "X-Forwarded-For"}

// Location values recorded on a variant.
const (
	LocQuery  = "query"
	LocForm   = "form"
	LocHeader = "header"
)

// Variant is one request carrying the payload in exactly one place.
type Variant struct {
	Location string
	Param    string
	// Value is what was sent for Param, payload included.
	Value   string
	Payload string
	Request *httpclient.Request
}

// Variants builds one request per injection point of base for s, in
// parameter order: query parameters first, then form fields, then headers.
// A base request without the targeted parameters yields no variants.
func Variants(base *httpclient.Request, s *script.Script) []Variant {
	if base == nil || s == nil || s.Injection == nil {
		return nil
	}

	var out []Variant
	switch s.Inject {
	case script.InjectQuery:
		out = queryVariants(base, s.Injection)
	case script.InjectForm:
		out = formVariants(base, s.Injection)
	case script.InjectParam:
		out = append(queryVariants(base, s.Injection), formVariants(base, s.Injection)...)
	case script.InjectHeader:
		out = headerVariants(base, s.Injection)
	}
	return out
}

func injectValue(original string, d *script.InjectionData) string {
	if d.Replace() {
		return d.Value
	}
	return original + d.Value
}

func queryVariants(base *httpclient.Request, d *script.InjectionData) []Variant {
	u, err := url.Parse(base.URL)
	if err != nil || u.RawQuery == "" {
		return nil
	}
	params := formdata.ParseQuery(u.RawQuery)

	out := make([]Variant, 0, params.Len())
	for _, name := range params.Names() {
		values := params.Clone()
		v := injectValue(params.Get(name), d)
		values.Set(name, v)

		nu := *u
		nu.RawQuery = values.Encode()

		req := base.Clone()
		req.URL = nu.String()
		out = append(out, Variant{Location: LocQuery, Param: name, Value: v, Payload: d.Value, Request: req})
	}
	return out
}

func formVariants(base *httpclient.Request, d *script.InjectionData) []Variant {
	if base.Form.Len() == 0 {
		return nil
	}

	out := make([]Variant, 0, base.Form.Len())
	for _, name := range base.Form.Names() {
		req := base.Clone()
		v := injectValue(base.Form.Get(name), d)
		req.Form.Set(name, v)
		out = append(out, Variant{Location: LocForm, Param: name, Value: v, Payload: d.Value, Request: req})
	}
	return out
}

func headerVariants(base *httpclient.Request, d *script.InjectionData) []Variant {
	names := d.Headers
	if len(names) == 0 {
		names = DefaultHeaders
	}

	out := make([]Variant, 0, len(names))
	for _, name := range names {
		name = http.CanonicalHeaderKey(name)
		req := base.Clone()
		if req.Header == nil {
			req.Header = http.Header{}
		}
		v := injectValue(req.Header.Get(name), d)
		req.Header.Set(name, v)
		out = append(out, Variant{Location: LocHeader, Param: name, Value: v, Payload: d.Value, Request: req})
	}
	return out
}
