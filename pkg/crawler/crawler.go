// Package crawler drives the fetch loop: it pulls tasks from a frontier,
// fetches them on a bounded worker pool, feeds discovered links and forms
// back into the frontier and hands every response to a sink.
package crawler

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/waftester/crawlscan/pkg/defaults"
	"github.com/waftester/crawlscan/pkg/duration"
	"github.com/waftester/crawlscan/pkg/frontier"
	"github.com/waftester/crawlscan/pkg/httpclient"
	"github.com/waftester/crawlscan/pkg/metrics"
	"github.com/waftester/crawlscan/pkg/workerpool"
)

// Fetcher performs one HTTP exchange.
type Fetcher interface {
	Fetch(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error)
}

// Sink receives every completed exchange, HTML or not.
type Sink interface {
	Submit(ex *httpclient.Exchange)
}

// Progress persists crawl progress after each dispatch.
type Progress interface {
	Save(f *frontier.Frontier) error
}

// Config holds crawl loop settings.
type Config struct {
	// Workers bounds concurrent fetches.
	Workers int

	// IdleTimeout ends the crawl once no task arrived for this long and
	// nothing is in flight.
	IdleTimeout time.Duration

	// FillEmpty synthesizes values for empty form fields.
	FillEmpty bool
}

// DefaultConfig returns the default crawl loop settings.
func DefaultConfig() Config {
	return Config{
		Workers:     defaults.FetchWorkers,
		IdleTimeout: duration.FrontierIdle,
		FillEmpty:   true,
	}
}

// Stats summarizes a finished crawl.
type Stats struct {
	Fetched int64
	Failed  int64
	Parsed  int64
	Links   int64
	Forms   int64
}

// Crawler runs one crawl session over a frontier.
type Crawler struct {
	cfg       Config
	frontier  *frontier.Frontier
	fetcher   Fetcher
	sink      Sink
	progress  Progress
	extractor *Extractor
	metrics   *metrics.Collector
	logger    *slog.Logger
	tracer    trace.Tracer

	fetched atomic.Int64
	failed  atomic.Int64
	parsed  atomic.Int64
	links   atomic.Int64
	forms   atomic.Int64
}

// Option configures optional crawler collaborators.
type Option func(*Crawler)

// WithSink sets the exchange sink.
func WithSink(s Sink) Option { return func(c *Crawler) { c.sink = s } }

// WithProgress sets the progress writer.
func WithProgress(p Progress) Option { return func(c *Crawler) { c.progress = p } }

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option { return func(c *Crawler) { c.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithExtractor shares a form extractor, and with it the session email.
func WithExtractor(e *Extractor) Option {
	return func(c *Crawler) {
		if e != nil {
			c.extractor = e
		}
	}
}

// New creates a crawler over fr fetching with f.
func New(cfg Config, fr *frontier.Frontier, f Fetcher, opts ...Option) *Crawler {
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.FetchWorkers
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = duration.FrontierIdle
	}
	c := &Crawler{
		cfg:       cfg,
		frontier:  fr,
		fetcher:   f,
		extractor: NewExtractor(),
		logger:    slog.Default(),
		tracer:    otel.Tracer("crawlscan/crawler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.extractor.Logger == nil {
		c.extractor.Logger = c.logger
	}
	return c
}

type completion struct {
	task frontier.Task
	req  *httpclient.Request
	resp *httpclient.Response
	err  error
	took time.Duration
}

// Run crawls until the frontier stays empty for the idle timeout with no
// fetch in flight, or until ctx is done. The returned error is ctx's error
// when the crawl was cancelled.
func (c *Crawler) Run(ctx context.Context) (Stats, error) {
	ctx, span := c.tracer.Start(ctx, "crawler.run",
		trace.WithAttributes(attribute.String("crawl.root", c.frontier.Root())))
	defer span.End()

	pool := workerpool.New(c.cfg.Workers, c.logger)
	defer pool.Close()

	completions := make(chan completion, c.cfg.Workers)
	idle := time.NewTimer(c.cfg.IdleTimeout)
	defer idle.Stop()

	inflight := 0
	var runErr error

loop:
	for {
		tasks := c.frontier.Tasks()
		if inflight >= c.cfg.Workers {
			tasks = nil
		}

		select {
		case t := <-tasks:
			if !c.frontier.MarkDispatched(t) {
				continue
			}
			inflight++
			c.dispatched(t)
			if !pool.Submit(func() { c.fetch(ctx, t, completions) }) {
				inflight--
			}
			resetTimer(idle, c.cfg.IdleTimeout)

		case comp := <-completions:
			inflight--
			c.handle(comp)
			resetTimer(idle, c.cfg.IdleTimeout)

		case <-idle.C:
			if inflight == 0 {
				c.logger.Info("frontier idle, crawl finished")
				break loop
			}
			idle.Reset(c.cfg.IdleTimeout)

		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		}
	}

	pool.Wait()
	stats := c.Stats()
	span.SetAttributes(
		attribute.Int64("crawl.fetched", stats.Fetched),
		attribute.Int64("crawl.failed", stats.Failed),
	)
	return stats, runErr
}

func (c *Crawler) dispatched(t frontier.Task) {
	st := c.frontier.Stats()
	c.metrics.SetFrontier(st.Pending, st.Fetched)
	c.logger.Info("fetching",
		slog.String("url", t.URL),
		slog.Bool("form", t.Form != nil),
		slog.Int("pending", st.Pending),
		slog.Int("fetched", st.Fetched),
	)
	if c.progress != nil {
		if err := c.progress.Save(c.frontier); err != nil {
			c.logger.Warn("saving progress failed", slog.String("error", err.Error()))
		}
	}
}

func (c *Crawler) fetch(ctx context.Context, t frontier.Task, out chan<- completion) {
	req := t.Request()
	start := time.Now()
	resp, err := c.fetcher.Fetch(ctx, req)

	select {
	case out <- completion{task: t, req: req, resp: resp, err: err, took: time.Since(start)}:
	case <-ctx.Done():
	}
}

func (c *Crawler) handle(comp completion) {
	if comp.err != nil {
		c.failed.Add(1)
		kind := httpclient.Classify(comp.err).Error()
		c.metrics.FetchFailed(kind)
		c.logger.Warn("fetch failed",
			slog.String("url", comp.task.URL),
			slog.String("kind", kind),
			slog.String("error", comp.err.Error()),
		)
		return
	}

	c.fetched.Add(1)
	resp := comp.resp
	c.metrics.FetchDone(comp.req.EffectiveMethod(), resp.StatusCode, comp.took)
	c.logger.Debug("fetched",
		slog.String("url", resp.URL),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(resp.Body)),
	)

	// Every 200 body is parsed whatever its Content-Type.
	if resp.StatusCode == http.StatusOK {
		c.parse(resp)
	}

	if c.sink != nil {
		c.sink.Submit(&httpclient.Exchange{Request: comp.req, Response: resp})
	}
}

// parse feeds the links and forms of a page to the frontier.
func (c *Crawler) parse(resp *httpclient.Response) {
	c.parsed.Add(1)

	for _, href := range ExtractLinks(resp.Body) {
		_, reason := c.frontier.AdmitLink(resp.URL, href)
		c.metrics.Decision(reason.String())
		if reason == frontier.Admitted {
			c.links.Add(1)
		}
	}

	forms, err := c.extractor.Extract(resp.Body, resp.URL, c.cfg.FillEmpty)
	if err != nil {
		c.logger.Debug("form extraction failed", slog.String("url", resp.URL), slog.String("error", err.Error()))
		return
	}
	for _, f := range forms {
		_, reason := c.frontier.AdmitForm(f.Action, f.Values)
		c.metrics.Decision(reason.String())
		if reason == frontier.Admitted {
			c.forms.Add(1)
		}
	}
}

// Stats returns the counters so far.
func (c *Crawler) Stats() Stats {
	return Stats{
		Fetched: c.fetched.Load(),
		Failed:  c.failed.Load(),
		Parsed:  c.parsed.Load(),
		Links:   c.links.Load(),
		Forms:   c.forms.Load(),
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
