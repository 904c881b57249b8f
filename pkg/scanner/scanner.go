// Package scanner runs the script pipeline over fetched responses.
//
// The crawler hands every completed exchange to Submit. A bounded worker
// pool runs the passive scripts whose keywords occur in the body and, when
// exploitation is enabled, the active scripts' injection variants.
// Findings land in a shared append-only store; scripts with find "once"
// contribute at most one finding per run.
//
// Run ends once the input is sealed with CloseInput and no exchange
// arrived for the idle timeout.
package scanner

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/waftester/crawlscan/pkg/defaults"
	"github.com/waftester/crawlscan/pkg/duration"
	"github.com/waftester/crawlscan/pkg/finding"
	"github.com/waftester/crawlscan/pkg/frontier"
	"github.com/waftester/crawlscan/pkg/httpclient"
	"github.com/waftester/crawlscan/pkg/inject"
	"github.com/waftester/crawlscan/pkg/match"
	"github.com/waftester/crawlscan/pkg/metrics"
	"github.com/waftester/crawlscan/pkg/script"
	"github.com/waftester/crawlscan/pkg/workerpool"
)

// Config holds scanner settings.
type Config struct {
	// Workers bounds concurrent script runs
	Workers int
	// IdleTimeout is the wait on an empty queue before checking for the end
	IdleTimeout time.Duration
	// CanExploit enables active scripts
	CanExploit bool
	// CanFS enables filesystem probes
	CanFS bool
	// QueueSize is the capacity of the exchange queue
	QueueSize int
}

// DefaultConfig returns the default scanner settings.
func DefaultConfig() Config {
	return Config{
		Workers:     defaults.ScanWorkers,
		IdleTimeout: duration.ScannerIdle,
		CanExploit:  true,
		CanFS:       true,
		QueueSize:   defaults.QueueBuffer,
	}
}

// Scanner dispatches exchanges to the script pipeline.
type Scanner struct {
	cfg     Config
	catalog *script.Catalog
	builder *inject.Builder
	store   *finding.Store
	metrics *metrics.Collector
	logger  *slog.Logger
	tracer  trace.Tracer

	queue    chan *httpclient.Exchange
	sealed   chan struct{}
	sealOnce sync.Once
	stopped  chan struct{}
	stopOnce sync.Once

	submitted atomic.Int64
	done      atomic.Int64
}

// Option configures optional scanner collaborators.
type Option func(*Scanner)

// WithStore shares a finding store.
func WithStore(st *finding.Store) Option {
	return func(s *Scanner) {
		if st != nil {
			s.store = st
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option { return func(s *Scanner) { s.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a scanner over catalog. Injection and probe requests go
// through f.
func New(cfg Config, catalog *script.Catalog, f inject.Fetcher, opts ...Option) (*Scanner, error) {
	if catalog == nil {
		return nil, ErrNoCatalog
	}
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}

	s := &Scanner{
		cfg:     cfg,
		catalog: catalog,
		store:   finding.NewStore(),
		logger:  slog.Default(),
		tracer:  otel.Tracer("github.com/waftester/crawlscan/pkg/scanner"),
		queue:   make(chan *httpclient.Exchange, cfg.QueueSize),
		sealed:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.builder = inject.New(f, s.logger)
	return s, nil
}

// Store returns the finding store.
func (s *Scanner) Store() *finding.Store { return s.store }

// Done returns how many exchanges went through the pipeline.
func (s *Scanner) Done() int64 { return s.done.Load() }

// Submit queues ex for scanning. It blocks while the queue is full and
// drops ex once Run has returned.
func (s *Scanner) Submit(ex *httpclient.Exchange) {
	if ex == nil || ex.Response == nil {
		return
	}
	select {
	case s.queue <- ex:
		s.submitted.Add(1)
	case <-s.stopped:
		s.logger.Debug("scanner stopped, exchange dropped", slog.String("url", ex.Response.URL))
	}
}

// CloseInput tells Run no more exchanges will be submitted.
func (s *Scanner) CloseInput() {
	s.sealOnce.Do(func() { close(s.sealed) })
}

func (s *Scanner) isSealed() bool {
	select {
	case <-s.sealed:
		return true
	default:
		return false
	}
}

// Run dispatches queued exchanges to the worker pool until the input is
// sealed and the queue has stayed empty for the idle timeout, or ctx is
// done. Running scripts finish before Run returns.
func (s *Scanner) Run(ctx context.Context) error {
	defer s.stopOnce.Do(func() { close(s.stopped) })

	pool := workerpool.New(s.cfg.Workers, s.logger)
	defer pool.Close()

	idle := time.NewTimer(s.cfg.IdleTimeout)
	defer idle.Stop()

	var runErr error
loop:
	for {
		select {
		case ex := <-s.queue:
			s.logger.Debug("running scripts", slog.String("url", ex.Response.URL))
			pool.Submit(func() { s.process(ctx, ex) })
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(s.cfg.IdleTimeout)

		case <-idle.C:
			if s.isSealed() && len(s.queue) == 0 {
				break loop
			}
			idle.Reset(s.cfg.IdleTimeout)

		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		}
	}

	pool.Wait()
	s.logger.Info("scanner finished",
		slog.Int64("done", s.done.Load()),
		slog.Int("findings", s.store.Len()),
	)
	return runErr
}

// Scan runs the pipeline over one exchange synchronously.
func (s *Scanner) Scan(ctx context.Context, ex *httpclient.Exchange) {
	if ex == nil || ex.Response == nil {
		return
	}
	s.process(ctx, ex)
}

func (s *Scanner) process(ctx context.Context, ex *httpclient.Exchange) {
	ctx, span := s.tracer.Start(ctx, "scanner.process",
		trace.WithAttributes(attribute.String("url", ex.Response.URL)))
	defer span.End()

	s.runPassive(ex)
	if s.cfg.CanExploit && ex.Request != nil {
		s.runActive(ctx, ex.Request)
	}

	done := s.done.Add(1)
	s.metrics.Scanned()
	s.logger.Info("scanned",
		slog.Int64("todo", s.submitted.Load()-done),
		slog.Int64("done", done),
	)
}

func (s *Scanner) runPassive(ex *httpclient.Exchange) {
	for _, sc := range s.catalog.PassiveCandidates(ex.Response.Body) {
		if sc.Once() && s.store.Reported(sc.Name) {
			continue
		}
		s.metrics.ScriptRun(string(sc.Category))
		res := sc.Match(ex.Response)
		if res == nil {
			continue
		}
		s.record(sc, ex.Response, res, snapshot(ex.Request))
	}
}

func (s *Scanner) runActive(ctx context.Context, base *httpclient.Request) {
	for _, sc := range s.catalog.Active() {
		if ctx.Err() != nil {
			return
		}
		if sc.Once() && s.store.Reported(sc.Name) {
			continue
		}
		s.metrics.ScriptRun(string(sc.Category))
		hits, err := s.builder.Run(ctx, base, sc)
		if err != nil {
			s.logger.Debug("active script aborted", slog.String("script", sc.Name), slog.String("error", err.Error()))
		}
		for _, h := range hits {
			snap := snapshot(h.Variant.Request)
			snap.Location = h.Variant.Location
			snap.Param = h.Variant.Param
			snap.Payload = h.Variant.Payload
			s.record(sc, h.Response, h.Match, snap)
		}
	}
}

// RunFilesystem issues every filesystem probe against root and returns
// the probed resources that exist, in script order, as crawl tasks.
// Matching probes are recorded as findings.
func (s *Scanner) RunFilesystem(ctx context.Context, root string) ([]frontier.Task, error) {
	if !s.cfg.CanFS {
		return nil, nil
	}
	if root == "" {
		return nil, ErrNoRoot
	}
	probes := s.catalog.Filesystem()
	if len(probes) == 0 {
		return nil, nil
	}

	ctx, span := s.tracer.Start(ctx, "scanner.filesystem",
		trace.WithAttributes(attribute.Int("probes", len(probes))))
	defer span.End()

	found := make([]*frontier.Task, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, sc := range probes {
		g.Go(func() error {
			s.metrics.ScriptRun(string(sc.Category))
			res, err := s.builder.Probe(gctx, sc, root)
			if err != nil {
				s.logger.Warn("probe failed", slog.String("script", sc.Name), slog.String("error", err.Error()))
				return nil
			}
			if res.Found() {
				found[i] = &frontier.Task{URL: res.Request.URL, Form: res.Request.Form}
				s.logger.Info("discovered", slog.String("script", sc.Name), slog.String("url", res.Request.URL))
			}
			if res.Match != nil {
				s.record(sc, res.Response, res.Match, snapshot(res.Request))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var tasks []frontier.Task
	for _, t := range found {
		if t != nil {
			tasks = append(tasks, *t)
		}
	}
	return tasks, ctx.Err()
}

func (s *Scanner) record(sc *script.Script, resp *httpclient.Response, res *match.Result, snap *finding.Snapshot) {
	f := &finding.Finding{
		Script:      sc.Name,
		Category:    sc.Category,
		Severity:    sc.Severity,
		Description: sc.Description,
		URL:         resp.URL,
		StatusCode:  resp.StatusCode,
		MatchName:   res.Name,
		Location:    res.Location,
		Evidence:    res.Evidence,
		Request:     snap,
	}
	if !s.store.Add(f, sc.Once()) {
		return
	}
	s.metrics.FindingRecorded(string(f.Severity), string(f.Category))
	s.logger.Info("finding",
		slog.String("script", f.Script),
		slog.String("severity", string(f.Severity)),
		slog.String("url", f.URL),
		slog.String("evidence", f.Evidence),
	)
}

func snapshot(req *httpclient.Request) *finding.Snapshot {
	if req == nil {
		return &finding.Snapshot{}
	}
	snap := &finding.Snapshot{
		Method: req.EffectiveMethod(),
		URL:    req.URL,
		Form:   req.Form.Clone(),
	}
	if len(req.Header) > 0 {
		snap.Header = make(map[string]string, len(req.Header))
		for k := range req.Header {
			snap.Header[k] = req.Header.Get(k)
		}
	}
	return snap
}
