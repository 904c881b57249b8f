// Package checkpoint persists crawl progress so it can be inspected while
// the crawl runs. Every save rewrites the whole file through a temp file
// and a rename, so readers never see a partial document.
package checkpoint

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/waftester/crawlscan/pkg/formdata"
	"github.com/waftester/crawlscan/pkg/frontier"
	"github.com/waftester/crawlscan/pkg/iohelper"
)

// DefaultDir holds progress files when no path is configured.
const DefaultDir = "data"

// Entry is one visited task, written as [url, formData|null].
type Entry struct {
	URL  string
	Form *formdata.Values
}

// MarshalJSON encodes the entry as a two-element array.
func (e Entry) MarshalJSON() ([]byte, error) {
	form := []byte("null")
	if e.Form != nil {
		b, err := e.Form.MarshalJSON()
		if err != nil {
			return nil, err
		}
		form = b
	}
	u, err := json.Marshal(e.URL)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	buf.Write(u)
	buf.WriteByte(',')
	buf.Write(form)
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a [url, formData|null] pair.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var parts []jsontext.Value
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("%w: %w", ErrBadEntry, err)
	}
	if len(parts) != 2 {
		return fmt.Errorf("%w: %d elements", ErrBadEntry, len(parts))
	}
	if err := json.Unmarshal(parts[0], &e.URL); err != nil {
		return fmt.Errorf("%w: url: %w", ErrBadEntry, err)
	}
	e.Form = nil
	if parts[1].Kind() == 'n' {
		return nil
	}
	e.Form = &formdata.Values{}
	return e.Form.UnmarshalJSON(parts[1])
}

// State is the progress document.
type State struct {
	Session   string    `json:"session"`
	Root      string    `json:"root"`
	Fetched   int       `json:"fetched"`
	Pending   int       `json:"pending"`
	Ignored   int       `json:"ignored"`
	UpdatedAt time.Time `json:"updated_at"`
	Visited   []Entry   `json:"visited"`
}

// Writer saves crawl progress to one file.
type Writer struct {
	path    string
	session string
	logger  *slog.Logger

	mu    sync.Mutex
	saves int
}

// NewWriter returns a writer for path tagged with session.
func NewWriter(path, session string, logger *slog.Logger) (*Writer, error) {
	if path == "" {
		return nil, ErrNoPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{path: path, session: session, logger: logger}, nil
}

// DefaultPath returns data/crawler_<host>_<unix>.json for root.
func DefaultPath(root string, now time.Time) string {
	host := "target"
	if u, err := url.Parse(root); err == nil && u.Host != "" {
		host = strings.NewReplacer(":", "_", "[", "", "]", "").Replace(u.Host)
	}
	return filepath.Join(DefaultDir, "crawler_"+host+"_"+strconv.FormatInt(now.Unix(), 10)+".json")
}

// Path returns the file the writer saves to.
func (w *Writer) Path() string { return w.path }

// Saves returns how many saves succeeded.
func (w *Writer) Saves() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.saves
}

// Save writes the current state of fr.
func (w *Writer) Save(fr *frontier.Frontier) error {
	visited := fr.Visited()
	st := fr.Stats()
	state := State{
		Session:   w.session,
		Root:      fr.Root(),
		Fetched:   st.Fetched,
		Pending:   st.Pending,
		Ignored:   st.Ignored,
		UpdatedAt: time.Now().UTC(),
		Visited:   make([]Entry, len(visited)),
	}
	for i, t := range visited {
		state.Visited[i] = Entry{URL: t.URL, Form: t.Form}
	}
	return w.Write(&state)
}

// Write stores state atomically.
func (w *Writer) Write(state *State) error {
	data, err := json.Marshal(state, jsontext.WithIndent("  "))
	if err != nil {
		return fmt.Errorf("checkpoint: encoding: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		iohelper.CloseOrLog(tmp, w.logger, tmpName)
		_ = os.Remove(tmpName)
		return fmt.Errorf("checkpoint: writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("checkpoint: closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("checkpoint: %w", err)
	}
	w.saves++
	return nil
}

// Load reads a progress file.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("checkpoint: decoding %s: %w", path, err)
	}
	return &state, nil
}

// Tasks converts the visited entries back into crawl tasks.
func (s *State) Tasks() []frontier.Task {
	out := make([]frontier.Task, len(s.Visited))
	for i, e := range s.Visited {
		out[i] = frontier.Task{URL: e.URL, Form: e.Form}
	}
	return out
}
