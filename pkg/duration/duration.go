// Package duration provides canonical time constants for crawlscan.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.ShutdownGrace)
//	cfg.ConnectTimeout = duration.Connect
//
// Reference these constants instead of hardcoding `3 * time.Second`.
package duration

import "time"

// ============================================================================
// HTTP CLIENT TIMEOUTS
// ============================================================================

const (
	// Connect bounds TCP connect and TLS handshake (3s)
	Connect = 3 * time.Second

	// Read bounds waiting for response headers and body (30s)
	Read = 30 * time.Second

	// IdleConn is how long idle keep-alive connections stay pooled (90s)
	IdleConn = 90 * time.Second
)

// ============================================================================
// QUEUE WAITS
// ============================================================================
//
// Both run loops stop after a bounded wait with no new work.
// ============================================================================

const (
	// FrontierIdle is the crawl loop's empty-queue wait (10s)
	FrontierIdle = 10 * time.Second

	// ScannerIdle is the dispatcher's empty-queue wait (1s)
	ScannerIdle = 1 * time.Second
)

// ============================================================================
// SERVERS AND EXPORTERS
// ============================================================================

const (
	// ShutdownGrace bounds metrics server and tracer shutdown (5s)
	ShutdownGrace = 5 * time.Second

	// MetricsReadTimeout bounds reads on the /metrics endpoint (5s)
	MetricsReadTimeout = 5 * time.Second

	// ExporterConnect bounds the OTLP exporter dial (10s)
	ExporterConnect = 10 * time.Second
)
