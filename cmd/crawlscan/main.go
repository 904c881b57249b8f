// Command crawlscan crawls a web application and runs detection scripts
// over every response it fetches.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/waftester/crawlscan/pkg/checkpoint"
	"github.com/waftester/crawlscan/pkg/config"
	"github.com/waftester/crawlscan/pkg/crawler"
	"github.com/waftester/crawlscan/pkg/defaults"
	"github.com/waftester/crawlscan/pkg/finding"
	"github.com/waftester/crawlscan/pkg/frontier"
	"github.com/waftester/crawlscan/pkg/httpclient"
	"github.com/waftester/crawlscan/pkg/metrics"
	"github.com/waftester/crawlscan/pkg/report"
	"github.com/waftester/crawlscan/pkg/scanner"
	"github.com/waftester/crawlscan/pkg/script"
	"github.com/waftester/crawlscan/pkg/telemetry"
	"github.com/waftester/crawlscan/pkg/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case cfg.Verbose:
		level = slog.LevelDebug
	case cfg.Silent:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// run executes one crawl session and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.ParseArgs(defaults.ToolName, args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return defaults.ExitSuccess
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return defaults.ExitUserError
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return defaults.ExitUserError
	}

	if f, ok := stderr.(*os.File); ok {
		ui.SetupColor(f, cfg.NoColor)
	} else {
		ui.SetupColor(nil, true)
	}
	logger := newLogger(stderr, cfg)
	if !cfg.Silent {
		ui.PrintBanner(stderr)
	}

	result, err := crawl(ctx, cfg, logger, stderr)
	if err != nil {
		logger.Error("crawl failed", slog.String("error", err.Error()))
		return defaults.ExitUserError
	}

	writer, err := report.New(report.Options{Format: cfg.OutputFormat, Template: cfg.Template})
	if err != nil {
		logger.Error("report", slog.String("error", err.Error()))
		return defaults.ExitUserError
	}
	if cfg.Output == "" || cfg.Output == "-" {
		err = writer.Write(stdout, result)
	} else {
		err = report.WriteFile(cfg.Output, writer, result)
	}
	if err != nil {
		logger.Error("writing report failed", slog.String("error", err.Error()))
	}

	if !cfg.Silent {
		ui.PrintSummary(stderr, ui.Summary{Result: result, Output: cfg.Output})
	}

	if cfg.FailOnFindings && result.MaxSeverity().AtLeast(finding.High) {
		return defaults.ExitFindingsGate
	}
	return defaults.ExitSuccess
}

// crawl wires the session together: filesystem probes first, then the
// crawl loop and the scanner side by side until both are done.
func crawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stderr io.Writer) (*finding.ScanResult, error) {
	start := time.Now()
	session := uuid.NewString()

	shutdown, err := telemetry.Setup(ctx, telemetry.Options{
		Endpoint: cfg.OTLPEndpoint,
		Insecure: cfg.OTLPInsecure,
		Session:  session,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", slog.String("error", err.Error()))
		}
	}()

	catalog, loadReport, err := script.Load(cfg.ScriptDir, logger)
	if err != nil {
		return nil, err
	}
	for _, le := range loadReport.Failed {
		logger.Debug("script not loaded", slog.String("file", le.Path))
	}

	client, err := httpclient.New(httpclient.Config{
		ConnectTimeout:     cfg.ConnectTimeout,
		ReadTimeout:        cfg.ReadTimeout,
		UserAgent:          cfg.UserAgent,
		Headers:            cfg.Headers,
		RateLimit:          cfg.RateLimit,
		Proxy:              cfg.Proxy,
		InsecureSkipVerify: true,
	})
	if err != nil {
		return nil, err
	}

	fr, err := frontier.New(cfg.Target, frontier.Config{
		MaxURLs:               cfg.MaxURLs,
		MaxURLUniqueKeys:      cfg.MaxURLUniqueKeys,
		MaxPostdataUniqueKeys: cfg.MaxPostdataUniqueKeys,
		MaxPostdataPerURL:     cfg.MaxPostdataPerURL,
		AllowedFiletypes:      cfg.AllowedFiletypes,
		SameOriginOnly:        cfg.SameOriginOnly,
	}, logger)
	if err != nil {
		return nil, err
	}

	progressPath := cfg.ProgressFile
	if progressPath == "" {
		progressPath = checkpoint.DefaultPath(fr.Root(), start)
	}
	progress, err := checkpoint.NewWriter(progressPath, session, logger)
	if err != nil {
		return nil, err
	}

	collector := metrics.New()
	sc, err := scanner.New(scanner.Config{
		Workers:     cfg.ScanThreads,
		IdleTimeout: cfg.ScannerIdle,
		CanExploit:  cfg.CanExploit,
		CanFS:       cfg.CanFS,
	}, catalog, client, scanner.WithMetrics(collector), scanner.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	if !cfg.Silent {
		ui.PrintOptions(stderr,
			[2]string{"Target", fr.Root()},
			[2]string{"Session", session},
			[2]string{"Scripts", fmt.Sprintf("%d passive, %d active, %d fs", len(catalog.Passive()), len(catalog.Active()), len(catalog.Filesystem()))},
			[2]string{"Workers", fmt.Sprintf("%d fetch, %d scan", cfg.ThreadCount, cfg.ScanThreads)},
			[2]string{"Budget", fmt.Sprint(cfg.MaxURLs)},
			[2]string{"Progress", progressPath},
			[2]string{"Metrics", cfg.MetricsAddr},
		)
	}

	fr.Enqueue(frontier.Task{URL: fr.Root()})
	discovered, err := sc.RunFilesystem(ctx, fr.Root())
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("filesystem probes", slog.String("error", err.Error()))
	}
	for _, t := range discovered {
		if fr.Enqueue(t) {
			logger.Info("probe discovery queued", slog.String("url", t.URL))
		}
	}

	cr := crawler.New(crawler.Config{
		Workers:     cfg.ThreadCount,
		IdleTimeout: cfg.FrontierIdle,
		FillEmpty:   cfg.FillEmpty,
	}, fr, client,
		crawler.WithSink(sc),
		crawler.WithProgress(progress),
		crawler.WithMetrics(collector),
		crawler.WithLogger(logger),
	)

	g, gctx := errgroup.WithContext(ctx)
	metricsCtx, stopMetrics := context.WithCancel(gctx)
	defer stopMetrics()

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			if err := collector.Serve(metricsCtx, cfg.MetricsAddr, logger); err != nil {
				logger.Warn("metrics server", slog.String("error", err.Error()))
			}
			return nil
		})
	}
	g.Go(func() error {
		defer sc.CloseInput()
		_, err := cr.Run(gctx)
		return ignoreCancel(err)
	})
	g.Go(func() error {
		defer stopMetrics()
		return ignoreCancel(sc.Run(gctx))
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		logger.Warn("interrupted, reporting partial results")
	}

	if err := progress.Save(fr); err != nil {
		logger.Warn("saving progress failed", slog.String("error", err.Error()))
	}

	st := fr.Stats()
	return &finding.ScanResult{
		Session:   session,
		Target:    fr.Root(),
		StartTime: start,
		Duration:  time.Since(start),
		Fetched:   st.Fetched,
		Scanned:   sc.Done(),
		Ignored:   st.Ignored,
		Findings:  sc.Store().Sorted(),
	}, nil
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
