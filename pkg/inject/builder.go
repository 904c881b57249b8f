// Package inject builds and issues the extra requests scripts ask for:
// filesystem probes against the crawl root and payload-injected variants
// of already observed requests.
package inject

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/waftester/crawlscan/pkg/httpclient"
	"github.com/waftester/crawlscan/pkg/match"
	"github.com/waftester/crawlscan/pkg/script"
)

// Fetcher issues one request. *httpclient.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error)
}

// OptRootDir makes a probe URL resolve against the origin root instead of
// the crawl root URL.
const OptRootDir = "rootdir"

// Builder issues script-driven requests.
type Builder struct {
	fetcher Fetcher
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New returns a builder that sends requests through f.
func New(f Fetcher, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		fetcher: f,
		logger:  logger,
		tracer:  otel.Tracer("github.com/waftester/crawlscan/pkg/inject"),
	}
}

// ProbeResult is the outcome of one filesystem probe.
type ProbeResult struct {
	Request  *httpclient.Request
	Response *httpclient.Response
	// Match is the first matching spec, or nil.
	Match *match.Result
}

// Found reports whether the probed resource exists (status 200). Found
// resources are crawl candidates.
func (r *ProbeResult) Found() bool {
	return r != nil && r.Response != nil && r.Response.StatusCode == http.StatusOK
}

// ProbeRequest builds the request a filesystem probe sends for root.
func ProbeRequest(s *script.Script, root string) (*httpclient.Request, error) {
	if s == nil || s.Probe == nil {
		return nil, ErrNotProbe
	}
	base, err := url.Parse(root)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: root %q", ErrBadURL, root)
	}
	if s.Probe.HasOption(OptRootDir) {
		base = &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"}
	}
	ref, err := url.Parse(strings.TrimSpace(s.Probe.URL))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadURL, s.Probe.URL, err)
	}

	req := &httpclient.Request{
		Method: s.Probe.Method,
		URL:    base.ResolveReference(ref).String(),
		Form:   s.Probe.Data.Clone(),
	}
	if len(s.Probe.Headers) > 0 {
		req.Header = make(http.Header, len(s.Probe.Headers))
		for k, v := range s.Probe.Headers {
			req.Header.Set(k, v)
		}
	}
	return req, nil
}

// Probe issues the request of filesystem-probe script s against root and
// evaluates the script's matchers on the response regardless of status.
func (b *Builder) Probe(ctx context.Context, s *script.Script, root string) (*ProbeResult, error) {
	req, err := ProbeRequest(s, root)
	if err != nil {
		return nil, err
	}

	ctx, span := b.tracer.Start(ctx, "inject.probe", trace.WithAttributes(
		attribute.String("script", s.Name),
		attribute.String("url", req.URL),
	))
	defer span.End()

	resp, err := b.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ProbeResult{Request: req, Response: resp, Match: s.Match(resp)}, nil
}

// Hit is a variant whose response matched.
type Hit struct {
	Variant  Variant
	Response *httpclient.Response
	Match    *match.Result
}

// Run issues every variant of base for active script s and returns the
// variants whose responses match. Variants that fail to fetch are logged
// and skipped.
func (b *Builder) Run(ctx context.Context, base *httpclient.Request, s *script.Script) ([]Hit, error) {
	if s == nil || s.Injection == nil {
		return nil, ErrNotActive
	}

	variants := Variants(base, s)
	if len(variants) == 0 {
		return nil, nil
	}

	ctx, span := b.tracer.Start(ctx, "inject.run", trace.WithAttributes(
		attribute.String("script", s.Name),
		attribute.String("url", base.URL),
		attribute.Int("variants", len(variants)),
	))
	defer span.End()

	var hits []Hit
	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return hits, err
		}
		resp, err := b.fetcher.Fetch(ctx, v.Request)
		if err != nil {
			b.logger.Debug("injection request failed",
				slog.String("script", s.Name),
				slog.String("url", v.Request.URL),
				slog.String("param", v.Param),
				slog.String("error", err.Error()),
			)
			continue
		}
		if res := s.Match(resp); res != nil {
			hits = append(hits, Hit{Variant: v, Response: resp, Match: res})
		}
	}
	span.SetAttributes(attribute.Int("hits", len(hits)))
	return hits, nil
}
