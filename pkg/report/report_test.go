package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/crawlscan/pkg/finding"
)

func sampleResult() *finding.ScanResult {
	return &finding.ScanResult{
		Session:   "abc",
		Target:    "http://t/",
		StartTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Fetched:   3,
		Scanned:   3,
		Findings: []*finding.Finding{
			{Script: "sqli", Category: finding.Active, Severity: finding.High, URL: "http://t/a.php?id=1%27", Evidence: "SQL, syntax"},
			{Script: "php-error", Category: finding.Passive, Severity: finding.Low, URL: "http://t/b.php", Evidence: "Fatal error"},
		},
	}
}

func TestNew_Formats(t *testing.T) {
	w, err := New(Options{})
	require.NoError(t, err)
	assert.IsType(t, JSONWriter{}, w)

	w, err = New(Options{Format: "JSONL"})
	require.NoError(t, err)
	assert.IsType(t, JSONLWriter{}, w)

	_, err = New(Options{Format: "template"})
	assert.ErrorIs(t, err, ErrNoTemplate)

	_, err = New(Options{Format: "xml"})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONWriter{}.Write(&buf, sampleResult()))

	var back finding.ScanResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "abc", back.Session)
	require.Len(t, back.Findings, 2)
	assert.Equal(t, finding.High, back.Findings[0].Severity)
}

func TestJSONWriter_EmptyFindingsIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONWriter{}.Write(&buf, &finding.ScanResult{Session: "s"}))
	assert.Contains(t, buf.String(), `"findings": []`)
}

func TestJSONLWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONLWriter{}.Write(&buf, sampleResult()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"script":"sqli"`)
}

func TestTemplateWriter_BuiltIns(t *testing.T) {
	assert.Equal(t, []string{"csv", "text-summary"}, BuiltInTemplates())

	tw, err := NewTemplateWriter("text-summary")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, tw.Write(&buf, sampleResult()))
	out := buf.String()
	assert.Contains(t, out, "Started: 2026-01-02 03:04:05")
	assert.Contains(t, out, "[HIGH] sqli http://t/a.php?id=1%27 > SQL, syntax")

	tw, err = NewTemplateWriter("csv")
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, tw.Write(&buf, sampleResult()))
	assert.Contains(t, buf.String(), `sqli,active,high,0,http://t/a.php?id=1%27,,"SQL, syntax"`)
}

func TestTemplateWriter_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.tmpl")
	require.NoError(t, os.WriteFile(path, []byte(`{{ .Max }} {{ len .Result.Findings }} {{ .Result.Target | quote }}`), 0o644))

	tw, err := NewTemplateWriter(path)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, tw.Write(&buf, sampleResult()))
	assert.Equal(t, `high 2 "http://t/"`, buf.String())

	_, err = NewTemplateWriter(filepath.Join(t.TempDir(), "missing.tmpl"))
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, WriteFile(path, JSONLWriter{}, sampleResult()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestEscapeCSV(t *testing.T) {
	assert.Equal(t, "plain", escapeCSV("plain"))
	assert.Equal(t, `"a ""b"""`, escapeCSV(`a "b"`))
}
