// Package metrics exposes crawl and scan counters for Prometheus scraping.
//
// Every Collector method is safe on a nil receiver, so components take a
// *Collector and callers that do not want metrics pass nil.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/waftester/crawlscan/pkg/defaults"
	"github.com/waftester/crawlscan/pkg/duration"
)

// Collector holds the metrics of one crawl session.
type Collector struct {
	registry *prometheus.Registry

	fetchesTotal  *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
	admissions    *prometheus.CounterVec
	scriptRuns    *prometheus.CounterVec
	findingsTotal *prometheus.CounterVec
	scannedTotal  prometheus.Counter
	frontierGauge *prometheus.GaugeVec
	responseTimes *prometheus.HistogramVec
}

// New creates a collector registered on a fresh registry.
func New() *Collector {
	ns := defaults.ToolName
	c := &Collector{
		registry: prometheus.NewRegistry(),
		fetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "fetches_total",
			Help:      "Completed fetches by method and status class",
		}, []string{"method", "status"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "fetch_errors_total",
			Help:      "Failed fetches by error kind",
		}, []string{"kind"}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "frontier_decisions_total",
			Help:      "Frontier admission decisions by reason",
		}, []string{"reason"}),
		scriptRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "script_runs_total",
			Help:      "Script executions by category",
		}, []string{"category"}),
		findingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "findings_total",
			Help:      "Recorded findings by severity and category",
		}, []string{"severity", "category"}),
		scannedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "responses_scanned_total",
			Help:      "Responses processed by the script pipeline",
		}),
		frontierGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "frontier_tasks",
			Help:      "Frontier tasks by state",
		}, []string{"state"}),
		responseTimes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "response_time_seconds",
			Help:      "Response time distribution in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}, []string{"method"}),
	}

	c.registry.MustRegister(
		c.fetchesTotal,
		c.fetchErrors,
		c.admissions,
		c.scriptRuns,
		c.findingsTotal,
		c.scannedTotal,
		c.frontierGauge,
		c.responseTimes,
	)
	return c
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// FetchDone records a completed fetch.
func (c *Collector) FetchDone(method string, status int, took time.Duration) {
	if c == nil {
		return
	}
	c.fetchesTotal.WithLabelValues(method, statusClass(status)).Inc()
	c.responseTimes.WithLabelValues(method).Observe(took.Seconds())
}

// FetchFailed records a failed fetch.
func (c *Collector) FetchFailed(kind string) {
	if c == nil {
		return
	}
	c.fetchErrors.WithLabelValues(kind).Inc()
}

// Decision records a frontier admission decision.
func (c *Collector) Decision(reason string) {
	if c == nil {
		return
	}
	c.admissions.WithLabelValues(reason).Inc()
}

// SetFrontier publishes pending and fetched task counts.
func (c *Collector) SetFrontier(pending, fetched int) {
	if c == nil {
		return
	}
	c.frontierGauge.WithLabelValues("pending").Set(float64(pending))
	c.frontierGauge.WithLabelValues("fetched").Set(float64(fetched))
}

// ScriptRun records one script execution.
func (c *Collector) ScriptRun(category string) {
	if c == nil {
		return
	}
	c.scriptRuns.WithLabelValues(category).Inc()
}

// FindingRecorded records a stored finding.
func (c *Collector) FindingRecorded(severity, category string) {
	if c == nil {
		return
	}
	c.findingsTotal.WithLabelValues(severity, category).Inc()
}

// Scanned records one response processed by the script pipeline.
func (c *Collector) Scanned() {
	if c == nil {
		return
	}
	c.scannedTotal.Inc()
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return strconv.Itoa(status)
	}
	return strconv.Itoa(status/100) + "xx"
}

// Serve exposes the registry at /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if c == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: duration.MetricsReadTimeout,
		ReadTimeout:       duration.MetricsReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", slog.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics: serving %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), duration.ShutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics: shutdown: %w", err)
		}
		return nil
	}
}
