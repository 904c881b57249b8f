// Package config holds the crawl configuration. Values come from Default,
// then an optional YAML file, then command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/waftester/crawlscan/pkg/defaults"
	"github.com/waftester/crawlscan/pkg/duration"
)

// Config holds every recognized option. YAML keys match the option names.
type Config struct {
	Target string `yaml:"target"`

	// Frontier limits
	MaxURLs               int      `yaml:"max_urls"`
	MaxURLUniqueKeys      int      `yaml:"max_url_unique_keys"`
	MaxPostdataUniqueKeys int      `yaml:"max_postdata_unique_keys"`
	MaxPostdataPerURL     int      `yaml:"max_postdata_per_url"`
	AllowedFiletypes      []string `yaml:"allowed_filetypes"`
	SameOriginOnly        bool     `yaml:"same_origin_only"`
	FillEmpty             bool     `yaml:"fill_empty"`

	// Workers and pipeline stages
	ThreadCount int    `yaml:"thread_count"`
	ScanThreads int    `yaml:"scan_threads"`
	CanFS       bool   `yaml:"can_fs"`
	CanExploit  bool   `yaml:"can_exploit"`
	ScriptDir   string `yaml:"script_dir"`

	// HTTP
	UserAgent      string            `yaml:"user_agent"`
	Headers        map[string]string `yaml:"headers"`
	Proxy          string            `yaml:"proxy"`
	RateLimit      float64           `yaml:"rate_limit"`
	ConnectTimeout time.Duration     `yaml:"connect_timeout"`
	ReadTimeout    time.Duration     `yaml:"read_timeout"`

	// Queue waits
	FrontierIdle time.Duration `yaml:"frontier_idle"`
	ScannerIdle  time.Duration `yaml:"scanner_idle"`

	// Output
	ProgressFile string `yaml:"progress_file"`
	Output       string `yaml:"output"`
	OutputFormat string `yaml:"output_format"`
	Template     string `yaml:"template"`

	// Observability
	MetricsAddr  string `yaml:"metrics_addr"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`

	// Command line only
	FailOnFindings bool `yaml:"-"`
	Verbose        bool `yaml:"-"`
	Silent         bool `yaml:"-"`
	NoColor        bool `yaml:"-"`
}

// OutputFormats lists the accepted output_format values.
var OutputFormats = []string{"json", "jsonl", "template"}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		MaxURLs:               defaults.MaxURLs,
		MaxURLUniqueKeys:      defaults.MaxURLUniqueKeys,
		MaxPostdataUniqueKeys: defaults.MaxPostdataUniqueKeys,
		MaxPostdataPerURL:     defaults.MaxPostdataPerURL,
		AllowedFiletypes:      slices.Clone(defaults.AllowedFiletypes),
		SameOriginOnly:        true,
		FillEmpty:             true,
		ThreadCount:           defaults.FetchWorkers,
		ScanThreads:           defaults.ScanWorkers,
		CanFS:                 true,
		CanExploit:            true,
		ScriptDir:             "scripts",
		UserAgent:             defaults.UserAgent("crawler"),
		Headers:               map[string]string{},
		ConnectTimeout:        duration.Connect,
		ReadTimeout:           duration.Read,
		FrontierIdle:          duration.FrontierIdle,
		ScannerIdle:           duration.ScannerIdle,
		OutputFormat:          "json",
		OTLPInsecure:          true,
	}
}

// Load reads the YAML file at path over the defaults. Keys absent from
// the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigFile, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	return cfg, nil
}

// Validate reports every problem found, each wrapped in ErrInvalidConfig
// or ErrMissingRequired.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Target == "" {
		errs = append(errs, fmt.Errorf("%w: target", ErrMissingRequired))
	} else if u, err := url.Parse(c.Target); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		bad("target %q must be an absolute http(s) URL", c.Target)
	}

	positive := []struct {
		name  string
		value int
	}{
		{"max_urls", c.MaxURLs},
		{"max_url_unique_keys", c.MaxURLUniqueKeys},
		{"max_postdata_unique_keys", c.MaxPostdataUniqueKeys},
		{"max_postdata_per_url", c.MaxPostdataPerURL},
		{"thread_count", c.ThreadCount},
		{"scan_threads", c.ScanThreads},
	}
	for _, p := range positive {
		if p.value <= 0 {
			bad("%s must be positive, got %d", p.name, p.value)
		}
	}

	for _, ext := range c.AllowedFiletypes {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			bad("allowed_filetypes entry %q must be empty or start with a dot", ext)
		}
	}
	if c.RateLimit < 0 {
		bad("rate_limit must not be negative")
	}

	waits := []struct {
		name  string
		value time.Duration
	}{
		{"connect_timeout", c.ConnectTimeout},
		{"read_timeout", c.ReadTimeout},
		{"frontier_idle", c.FrontierIdle},
		{"scanner_idle", c.ScannerIdle},
	}
	for _, w := range waits {
		if w.value <= 0 {
			bad("%s must be positive, got %s", w.name, w.value)
		}
	}

	if !slices.Contains(OutputFormats, c.OutputFormat) {
		bad("output_format %q is not one of %s", c.OutputFormat, strings.Join(OutputFormats, ", "))
	}
	if c.OutputFormat == "template" && c.Template == "" {
		errs = append(errs, fmt.Errorf("%w: template (required by output_format template)", ErrMissingRequired))
	}
	if c.Proxy != "" {
		if u, err := url.Parse(c.Proxy); err != nil || u.Scheme == "" || u.Host == "" {
			bad("proxy %q must be a URL", c.Proxy)
		}
	}
	if c.Verbose && c.Silent {
		bad("-v and -silent are mutually exclusive")
	}

	return errors.Join(errs...)
}
