package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// headerFlag collects repeated "Name: value" headers.
type headerFlag map[string]string

func (h headerFlag) String() string {
	parts := make([]string, 0, len(h))
	for k, v := range h {
		parts = append(parts, k+": "+v)
	}
	return strings.Join(parts, ", ")
}

func (h headerFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("header %q must be \"Name: value\"", s)
	}
	h[name] = strings.TrimSpace(value)
	return nil
}

// negatedBool is a boolean flag that clears the bound option when given.
type negatedBool struct{ p *bool }

func (n negatedBool) String() string {
	if n.p == nil {
		return "false"
	}
	return fmt.Sprint(!*n.p)
}

func (n negatedBool) Set(s string) error {
	switch s {
	case "true", "1":
		*n.p = false
	case "false", "0":
		*n.p = true
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	return nil
}

func (n negatedBool) IsBoolFlag() bool { return true }

func bind(fs *flag.FlagSet, cfg *Config, configPath *string) {
	// === INPUT ===
	fs.StringVar(&cfg.Target, "u", cfg.Target, "Target root URL")
	fs.StringVar(&cfg.Target, "target", cfg.Target, "Target root URL (alias)")
	fs.StringVar(configPath, "config", *configPath, "YAML configuration file")
	fs.StringVar(&cfg.ScriptDir, "scripts", cfg.ScriptDir, "Script directory")

	// === CRAWL ===
	fs.IntVar(&cfg.ThreadCount, "c", cfg.ThreadCount, "Concurrent fetch workers")
	fs.IntVar(&cfg.ScanThreads, "scan-threads", cfg.ScanThreads, "Concurrent script workers")
	fs.IntVar(&cfg.MaxURLs, "max-urls", cfg.MaxURLs, "Crawl budget (pending + fetched)")
	fs.Var(negatedBool{&cfg.CanFS}, "no-fs", "Skip filesystem probes")
	fs.Var(negatedBool{&cfg.CanExploit}, "no-exploit", "Skip active injection scripts")
	fs.Var(negatedBool{&cfg.SameOriginOnly}, "any-origin", "Follow links off the root origin")

	// === HTTP ===
	fs.Float64Var(&cfg.RateLimit, "rate", cfg.RateLimit, "Max requests per second (0 = unlimited)")
	fs.StringVar(&cfg.UserAgent, "ua", cfg.UserAgent, "User-Agent header")
	fs.StringVar(&cfg.Proxy, "proxy", cfg.Proxy, "HTTP or SOCKS5 proxy URL")
	fs.Var(headerFlag(cfg.Headers), "H", "Extra header \"Name: value\" (repeatable)")

	// === OUTPUT ===
	fs.StringVar(&cfg.Output, "o", cfg.Output, "Findings output file (default stdout)")
	fs.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: json, jsonl, template")
	fs.StringVar(&cfg.Template, "template", cfg.Template, "Template file or built-in name (text-summary, csv)")
	fs.StringVar(&cfg.ProgressFile, "progress", cfg.ProgressFile, "Progress file (default data/crawler_<host>_<unix>.json)")
	fs.BoolVar(&cfg.FailOnFindings, "fail-on-findings", cfg.FailOnFindings, "Exit 2 when high or critical findings exist")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Debug logging")
	fs.BoolVar(&cfg.Silent, "silent", cfg.Silent, "Only warnings and errors")
	fs.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "Disable colored output")

	// === OBSERVABILITY ===
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Serve Prometheus metrics on this address")
	fs.StringVar(&cfg.OTLPEndpoint, "otlp", cfg.OTLPEndpoint, "OTLP/gRPC trace collector address")
}

// ParseArgs builds the configuration from command-line args. A -config
// file is applied over the defaults first; flags given on the command line
// override it.
func ParseArgs(name string, args []string, output io.Writer) (*Config, error) {
	var configPath string
	cfg := Default()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	bind(fs, cfg, &configPath)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if configPath == "" {
		return cfg, nil
	}

	loaded, err := Load(configPath)
	if err != nil {
		return nil, err
	}

	// Re-apply the command line over the file.
	fs = flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	bind(fs, loaded, &configPath)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return loaded, nil
}
