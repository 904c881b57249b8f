package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/go-json-experiment/json"

	"github.com/waftester/crawlscan/pkg/finding"
)

var builtInTemplates = map[string]string{
	"text-summary": `{{ .Tool }} scan summary
Session: {{ .Result.Session }}
Target:  {{ .Result.Target }}
Started: {{ dateInZone "2006-01-02 15:04:05" .Result.StartTime "UTC" }}
Fetched: {{ .Result.Fetched }}  Scanned: {{ .Result.Scanned }}  Ignored: {{ .Result.Ignored }}
{{- if .Result.Findings }}

Findings ({{ len .Result.Findings }}):
{{- range .Result.Findings }}
  [{{ .Severity.String | upper }}] {{ .Script }} {{ .URL }}{{ with .Evidence }} > {{ trunc 80 . }}{{ end }}
{{- end }}
{{- else }}

No findings.
{{- end }}
`,

	"csv": `script,category,severity,status,url,location,evidence
{{- range .Result.Findings }}
{{ escapeCSV .Script }},{{ .Category }},{{ .Severity }},{{ .StatusCode }},{{ escapeCSV .URL }},{{ escapeCSV .Location }},{{ escapeCSV .Evidence }}
{{- end }}
`,
}

// BuiltInTemplates returns the names of the built-in templates.
func BuiltInTemplates() []string {
	names := make([]string, 0, len(builtInTemplates))
	for n := range builtInTemplates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TemplateWriter renders a text/template with sprig functions.
type TemplateWriter struct {
	tmpl *template.Template
}

type templateData struct {
	Tool   string
	Result *finding.ScanResult
	Counts map[finding.Severity]int
	Max    finding.Severity
}

// NewTemplateWriter parses the built-in template called source, or the
// template file at source.
func NewTemplateWriter(source string) (*TemplateWriter, error) {
	if source == "" {
		return nil, ErrNoTemplate
	}
	text, ok := builtInTemplates[source]
	if !ok {
		content, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("report: reading template: %w", err)
		}
		text = string(content)
	}

	funcs := sprig.TxtFuncMap()
	funcs["escapeCSV"] = escapeCSV
	funcs["json"] = toJSON

	tmpl, err := template.New("report").Funcs(funcs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("report: parse template: %w", err)
	}
	return &TemplateWriter{tmpl: tmpl}, nil
}

func (tw *TemplateWriter) Write(w io.Writer, r *finding.ScanResult) error {
	data := templateData{
		Tool:   "crawlscan",
		Result: r,
		Counts: r.CountBySeverity(),
		Max:    r.MaxSeverity(),
	}
	var buf bytes.Buffer
	if err := tw.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("report: template execution: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n\r") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
