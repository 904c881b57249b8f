// Package report writes the findings of a crawl session.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/waftester/crawlscan/pkg/finding"
	"github.com/waftester/crawlscan/pkg/iohelper"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatJSONL    = "jsonl"
	FormatTemplate = "template"
)

// Formats lists the supported formats.
var Formats = []string{FormatJSON, FormatJSONL, FormatTemplate}

// Writer renders a scan result.
type Writer interface {
	Write(w io.Writer, r *finding.ScanResult) error
}

// Options selects and configures a writer.
type Options struct {
	Format string
	// Template is a template file path or the name of a built-in template
	// (text-summary, csv). Only used by the template format.
	Template string
}

// New returns the writer for opts.Format. An empty format means json.
func New(opts Options) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", FormatJSON:
		return JSONWriter{}, nil
	case FormatJSONL:
		return JSONLWriter{}, nil
	case FormatTemplate:
		return NewTemplateWriter(opts.Template)
	default:
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownFormat, opts.Format, strings.Join(Formats, ", "))
	}
}

// WriteFile renders r into path, or to stdout when path is "" or "-".
func WriteFile(path string, wr Writer, r *finding.ScanResult) error {
	if path == "" || path == "-" {
		return wr.Write(os.Stdout, r)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := wr.Write(f, r); err != nil {
		iohelper.CloseOrLog(f, nil, path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: closing %s: %w", path, err)
	}
	return nil
}

// JSONWriter writes the whole result as one indented document.
type JSONWriter struct{}

func (JSONWriter) Write(w io.Writer, r *finding.ScanResult) error {
	if r.Findings == nil {
		r.Findings = []*finding.Finding{}
	}
	if err := json.MarshalWrite(w, r, jsontext.WithIndent("  ")); err != nil {
		return fmt.Errorf("report: encoding json: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// JSONLWriter writes one finding per line.
type JSONLWriter struct{}

func (JSONLWriter) Write(w io.Writer, r *finding.ScanResult) error {
	for _, f := range r.Findings {
		line, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("report: encoding finding %s: %w", f.Script, err)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	return nil
}
