// Package httpclient is the HTTP collaborator for the crawler and the
// script pipeline. Every request shares one connection pool and one cookie
// jar, redirects are never followed and an optional rate limit applies to
// all outbound traffic.
package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/waftester/crawlscan/pkg/defaults"
	"github.com/waftester/crawlscan/pkg/duration"
	"github.com/waftester/crawlscan/pkg/iohelper"
)

// Config holds HTTP client configuration options.
type Config struct {
	// ConnectTimeout bounds dialing and the TLS handshake (default: 3s)
	ConnectTimeout time.Duration

	// ReadTimeout bounds waiting for response headers and reading the body (default: 30s)
	ReadTimeout time.Duration

	// UserAgent is sent on every request unless the request sets its own
	UserAgent string

	// Headers are added to every request
	Headers map[string]string

	// RateLimit caps requests per second across all workers (0 = unlimited)
	RateLimit float64

	// Proxy is an http, https, socks5 or socks5h proxy URL (optional)
	Proxy string

	// InsecureSkipVerify skips TLS certificate verification (default: true)
	InsecureSkipVerify bool

	// MaxConnsPerHost is the maximum connections per host (default: 25)
	MaxConnsPerHost int

	// MaxBodySize caps how much of each body is kept (default: iohelper.PageMaxBodySize)
	MaxBodySize int64
}

// DefaultConfig returns the crawl defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:     duration.Connect,
		ReadTimeout:        duration.Read,
		UserAgent:          defaults.UserAgent("crawler"),
		InsecureSkipVerify: true,
		MaxConnsPerHost:    25,
		MaxBodySize:        iohelper.PageMaxBodySize,
	}
}

// Client issues requests for one crawl session.
type Client struct {
	http    *http.Client
	jar     http.CookieJar
	limiter *rate.Limiter
	maxBody int64
	tracer  trace.Tracer
}

// New creates a client from cfg. Zero values fall back to DefaultConfig.
func New(cfg Config) (*Client, error) {
	def := DefaultConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = def.MaxConnsPerHost
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = def.MaxBodySize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       duration.IdleConn,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		DialContext:           dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	if cfg.Proxy != "" {
		if err := applyProxy(transport, dialer, cfg.Proxy); err != nil {
			return nil, err
		}
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("httpclient: cookie jar: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		http: &http.Client{
			Transport: &headerTransport{
				base:      transport,
				userAgent: cfg.UserAgent,
				headers:   cfg.Headers,
			},
			Jar:     jar,
			Timeout: cfg.ConnectTimeout + cfg.ReadTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// 3xx responses are recorded as they are
				return http.ErrUseLastResponse
			},
		},
		jar:     jar,
		limiter: limiter,
		maxBody: cfg.MaxBodySize,
		tracer:  otel.Tracer("github.com/waftester/crawlscan/pkg/httpclient"),
	}, nil
}

func applyProxy(transport *http.Transport, dialer *net.Dialer, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrProxy, raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		d, err := proxy.FromURL(u, dialer)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrProxy, err)
		}
		if cd, ok := d.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return d.Dial(network, addr)
			}
		}
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrProxy, u.Scheme)
	}
	return nil
}

// Jar returns the cookie store shared by every request of this client.
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// Fetch issues req and reads the whole (capped) body. Transport errors are
// wrapped with the sentinel returned by Classify.
func (c *Client) Fetch(ctx context.Context, req *Request) (*Response, error) {
	method := req.EffectiveMethod()
	ctx, span := c.tracer.Start(ctx, "http.fetch", trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", req.URL),
	))
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("%w: %w", Classify(err), err)
		}
	}

	httpReq, err := buildRequest(ctx, method, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", Classify(err), err)
	}
	defer iohelper.DrainAndClose(resp.Body)

	body, err := iohelper.ReadBody(resp.Body, c.maxBody)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: reading body: %w", Classify(err), err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		URL:        resp.Request.URL.String(),
	}, nil
}

func buildRequest(ctx context.Context, method string, req *Request) (*http.Request, error) {
	var body io.Reader
	if req.Form != nil && method != http.MethodGet && method != http.MethodHead {
		body = strings.NewReader(req.Form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: building request for %s: %w", req.URL, err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", defaults.ContentTypeForm)
	}
	httpReq.Header.Set("Accept", defaults.AcceptHTML)
	for k, vals := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	return httpReq, nil
}
