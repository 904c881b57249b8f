package httpclient

import (
	"net/http"
	"strings"

	"github.com/waftester/crawlscan/pkg/formdata"
)

// Request is a single outbound request. A non-nil Form is sent as an
// urlencoded POST body unless Method says otherwise.
type Request struct {
	Method string
	URL    string
	Form   *formdata.Values
	Header http.Header
}

// EffectiveMethod returns Method, or POST when a form is attached and GET
// otherwise.
func (r *Request) EffectiveMethod() string {
	if r.Method != "" {
		return strings.ToUpper(r.Method)
	}
	if r.Form != nil {
		return http.MethodPost
	}
	return http.MethodGet
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := &Request{
		Method: r.Method,
		URL:    r.URL,
		Form:   r.Form.Clone(),
	}
	if r.Header != nil {
		c.Header = r.Header.Clone()
	}
	return c
}

// Response is a fully read response. Redirects are never followed, so URL
// is the URL that was requested.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// Text returns the body as a string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// Exchange pairs a request with the response it produced.
type Exchange struct {
	Request  *Request
	Response *Response
}
