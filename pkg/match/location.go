package match

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/waftester/crawlscan/pkg/httpclient"
)

type part int

const (
	partBody part = iota
	partHeaders
	partHeader
	partStatus
	partURL
)

type location struct {
	part   part
	header string
}

func parseLocation(s string) (location, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	switch lower {
	case "", "body", "response":
		return location{part: partBody}, nil
	case "headers", "header":
		return location{part: partHeaders}, nil
	case "status", "status_code", "code":
		return location{part: partStatus}, nil
	case "url":
		return location{part: partURL}, nil
	}
	if strings.HasPrefix(lower, "header:") {
		name := strings.TrimSpace(s[len("header:"):])
		if name == "" {
			return location{}, fmt.Errorf("%w: empty header name in location %q", ErrInvalidSpec, s)
		}
		return location{part: partHeader, header: http.CanonicalHeaderKey(name)}, nil
	}
	return location{}, fmt.Errorf("%w: unknown location %q", ErrInvalidSpec, s)
}

func (l location) String() string {
	switch l.part {
	case partHeaders:
		return "headers"
	case partHeader:
		return "header:" + l.header
	case partStatus:
		return "status"
	case partURL:
		return "url"
	default:
		return "body"
	}
}

// text returns the response field the location selects.
func (l location) text(resp *httpclient.Response) string {
	switch l.part {
	case partHeaders:
		return headerBlock(resp.Header)
	case partHeader:
		return strings.Join(resp.Header.Values(l.header), ", ")
	case partStatus:
		return strconv.Itoa(resp.StatusCode)
	case partURL:
		return resp.URL
	default:
		return string(resp.Body)
	}
}

// headerBlock renders headers as "Name: value" lines in sorted order.
func headerBlock(h http.Header) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range h[k] {
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteString("\r\n")
		}
	}
	return b.String()
}
