package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/crawlscan/pkg/checkpoint"
	"github.com/waftester/crawlscan/pkg/defaults"
	"github.com/waftester/crawlscan/pkg/finding"
)

func newApp(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<a href="/item.php?id=1">item</a><a href="/doc.pdf">pdf</a>`)
	})
	mux.HandleFunc("/item.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if strings.Contains(r.URL.Query().Get("id"), "'") {
			_, _ = io.WriteString(w, "You have an error in your SQL syntax")
			return
		}
		_, _ = io.WriteString(w, "Warning: debug mode on")
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "User-agent: *\nDisallow: /admin.php\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func setup(t *testing.T, target string) (dir string, args []string) {
	t.Helper()
	dir = t.TempDir()
	scripts := filepath.Join(dir, "scripts")

	writeFile(t, filepath.Join(scripts, "debug.json"), `{"name":"debug-mode","find":"once","run_at":"response","request":false,
  "severity":"low","matches":[{"type":"contains","match":"debug mode","location":"body"}]}`)
	writeFile(t, filepath.Join(scripts, "sqli.yaml"), `name: sql-error
find: always
run_at: response
request: query
severity: high
data:
  inject_value: "'"
matches:
  - type: regex
    match: "SQL (syntax)"
    location: body
`)
	writeFile(t, filepath.Join(scripts, "robots.json"), `{"name":"robots","find":"once","run_at":"fs",
  "data":{"url":"/robots.txt","options":["rootdir"]},
  "matches":[{"type":"regex","match":"Disallow: (\\S+)","location":"body"}]}`)
	writeFile(t, filepath.Join(scripts, "broken.json"), `{"name": `)

	writeFile(t, filepath.Join(dir, "crawl.yaml"), fmt.Sprintf(`target: %s
frontier_idle: 300ms
scanner_idle: 100ms
script_dir: %s
`, target, scripts))

	args = []string{
		"-config", filepath.Join(dir, "crawl.yaml"),
		"-silent",
		"-no-color",
		"-progress", filepath.Join(dir, "progress.json"),
		"-o", filepath.Join(dir, "findings.json"),
	}
	return dir, args
}

func TestRun_EndToEnd(t *testing.T) {
	srv := newApp(t)
	dir, args := setup(t, srv.URL+"/")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	require.Equal(t, defaults.ExitSuccess, code, stderr.String())

	data, err := os.ReadFile(filepath.Join(dir, "findings.json"))
	require.NoError(t, err)
	var result finding.ScanResult
	require.NoError(t, json.Unmarshal(data, &result))

	scripts := map[string]*finding.Finding{}
	for _, f := range result.Findings {
		scripts[f.Script] = f
	}
	require.Contains(t, scripts, "debug-mode")
	require.Contains(t, scripts, "sql-error")
	require.Contains(t, scripts, "robots")
	assert.Equal(t, "syntax", scripts["sql-error"].Evidence)
	assert.Equal(t, "id", scripts["sql-error"].Request.Param)
	assert.Equal(t, "/admin.php", scripts["robots"].Evidence)
	assert.Equal(t, finding.High, result.Findings[0].Severity, "sorted by severity")

	// Root, robots.txt from the probe and item.php are fetched; the pdf is not.
	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 1, result.Ignored)

	st, err := checkpoint.Load(filepath.Join(dir, "progress.json"))
	require.NoError(t, err)
	assert.Equal(t, result.Session, st.Session)
	assert.Len(t, st.Visited, 3)
}

func TestRun_FailOnFindings(t *testing.T) {
	srv := newApp(t)
	_, args := setup(t, srv.URL+"/")
	args = append(args, "-fail-on-findings")

	code := run(context.Background(), args, io.Discard, io.Discard)
	assert.Equal(t, defaults.ExitFindingsGate, code)
}

func TestRun_ConfigErrors(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, defaults.ExitUserError, run(context.Background(), []string{"-max-urls", "5"}, io.Discard, &stderr))
	assert.Contains(t, stderr.String(), "target")

	assert.Equal(t, defaults.ExitUserError, run(context.Background(), []string{"-bogus"}, io.Discard, io.Discard))
	assert.Equal(t, defaults.ExitSuccess, run(context.Background(), []string{"-h"}, io.Discard, io.Discard))

	assert.Equal(t, defaults.ExitUserError, run(context.Background(),
		[]string{"-u", "http://127.0.0.1:1/", "-scripts", filepath.Join(t.TempDir(), "none"), "-silent"}, io.Discard, io.Discard))
}
