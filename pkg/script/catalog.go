package script

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/waftester/crawlscan/pkg/finding"
	"github.com/waftester/crawlscan/pkg/match"
)

// Catalog is the read-only set of scripts for one run.
type Catalog struct {
	passive    []*Script
	active     []*Script
	filesystem []*Script
	index      *match.Index
}

// NewCatalog sorts scripts into their categories. Order within a category
// follows the input order.
func NewCatalog(scripts []*Script) *Catalog {
	c := &Catalog{}
	for _, s := range scripts {
		switch s.Category {
		case finding.Passive:
			c.passive = append(c.passive, s)
		case finding.Active:
			c.active = append(c.active, s)
		case finding.Filesystem:
			c.filesystem = append(c.filesystem, s)
		}
	}

	groups := make([][]*match.Matcher, len(c.passive))
	for i, s := range c.passive {
		groups[i] = s.Matchers
	}
	c.index = match.NewIndex(groups)
	return c
}

// Passive returns the passive scripts.
func (c *Catalog) Passive() []*Script { return c.passive }

// Active returns the active injection scripts.
func (c *Catalog) Active() []*Script { return c.active }

// Filesystem returns the filesystem-probe scripts.
func (c *Catalog) Filesystem() []*Script { return c.filesystem }

// Len returns the total number of scripts.
func (c *Catalog) Len() int {
	return len(c.passive) + len(c.active) + len(c.filesystem)
}

// PassiveCandidates returns the passive scripts that can match body, in
// catalog order. Scripts gated only by body substrings absent from body are
// left out.
func (c *Catalog) PassiveCandidates(body []byte) []*Script {
	idx := c.index.Candidates(body)
	out := make([]*Script, len(idx))
	for i, gi := range idx {
		out[i] = c.passive[gi]
	}
	return out
}

// LoadError records one script file that failed to load.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e LoadError) Unwrap() error { return e.Err }

// LoadReport summarizes a directory load.
type LoadReport struct {
	Loaded  int
	Failed  []LoadError
	Indexed int
}

// Load reads every regular file in dir as a script. A file that fails to
// load is logged and recorded in the report; the rest still load. Load
// only returns an error when dir itself cannot be read.
func Load(dir string, logger *slog.Logger) (*Catalog, *LoadReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrNoDirectory, dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	report := &LoadReport{}
	seen := make(map[string]string)
	var scripts []*Script

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)

		s, err := LoadFile(path)
		if err == nil {
			if prev, dup := seen[s.Name]; dup {
				err = fmt.Errorf("%w: %q already defined in %s", ErrDuplicateName, s.Name, prev)
			}
		}
		if err != nil {
			logger.Error("skipping script", slog.String("file", path), slog.String("error", err.Error()))
			report.Failed = append(report.Failed, LoadError{Path: path, Err: err})
			continue
		}

		seen[s.Name] = path
		scripts = append(scripts, s)
	}

	c := NewCatalog(scripts)
	report.Loaded = len(scripts)
	report.Indexed = c.index.Indexed()

	logger.Info("script catalog loaded",
		slog.Int("scripts", report.Loaded),
		slog.Int("passive", len(c.passive)),
		slog.Int("active", len(c.active)),
		slog.Int("fs", len(c.filesystem)),
		slog.Int("failed", len(report.Failed)),
	)
	return c, report, nil
}

// LoadFile reads and parses one script file.
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	return Parse(data, FormatOf(path), path)
}

// IsLoadError reports whether err came from a single script file rather
// than from the directory.
func IsLoadError(err error) bool {
	return errors.Is(err, ErrInvalidScript) || errors.Is(err, ErrUnknownCategory) || errors.Is(err, ErrDuplicateName)
}
