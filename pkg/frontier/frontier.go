// Package frontier is the crawl work queue. It owns every record used for
// deduplication (visited tasks, URL variations, admitted forms and ignored
// URLs) behind a single lock, so each admission is one atomic
// check-and-insert no matter how many fetch completions race on it.
package frontier

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/waftester/crawlscan/pkg/checksum"
	"github.com/waftester/crawlscan/pkg/defaults"
	"github.com/waftester/crawlscan/pkg/formdata"
)

// Config holds frontier limits. Zero values take the package defaults,
// except SameOriginOnly which is taken as given.
type Config struct {
	// MaxURLs caps pending + fetched tasks
	MaxURLs int
	// MaxURLUniqueKeys bounds occurrences per (URL path, parameter names)
	MaxURLUniqueKeys int
	// MaxPostdataUniqueKeys bounds admitted forms per (action, field names)
	MaxPostdataUniqueKeys int
	// MaxPostdataPerURL bounds admitted forms per action URL
	MaxPostdataPerURL int
	// AllowedFiletypes lists followed extensions; "" is "no extension"
	AllowedFiletypes []string
	// SameOriginOnly drops links and forms that resolve off the root origin
	SameOriginOnly bool
	// QueueSize is the capacity of the pending queue
	QueueSize int
}

// DefaultConfig returns the crawl defaults.
func DefaultConfig() Config {
	return Config{
		MaxURLs:               defaults.MaxURLs,
		MaxURLUniqueKeys:      defaults.MaxURLUniqueKeys,
		MaxPostdataUniqueKeys: defaults.MaxPostdataUniqueKeys,
		MaxPostdataPerURL:     defaults.MaxPostdataPerURL,
		AllowedFiletypes:      defaults.AllowedFiletypes,
		SameOriginOnly:        true,
	}
}

// Frontier holds pending tasks and admission state for one crawl.
type Frontier struct {
	cfg     Config
	root    *url.URL
	origin  string
	rootURL string
	allowed map[string]struct{}
	queue   chan Task
	logger  *slog.Logger

	mu         sync.Mutex
	pending    int
	known      map[string]struct{}
	visited    map[string]struct{}
	order      []Task
	variations map[string]int
	forms      []FormRecord
	formSeen   map[string]struct{}
	formShapes map[string]int
	formPerURL map[string]int
	ignored    map[string]struct{}
	ignoredLog []string
}

// New creates a frontier rooted at root.
func New(root string, cfg Config, logger *slog.Logger) (*Frontier, error) {
	u, err := url.Parse(strings.TrimSpace(root))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRoot, root)
	}
	if logger == nil {
		logger = slog.Default()
	}

	def := DefaultConfig()
	if cfg.MaxURLs <= 0 {
		cfg.MaxURLs = def.MaxURLs
	}
	if cfg.MaxURLUniqueKeys <= 0 {
		cfg.MaxURLUniqueKeys = def.MaxURLUniqueKeys
	}
	if cfg.MaxPostdataUniqueKeys <= 0 {
		cfg.MaxPostdataUniqueKeys = def.MaxPostdataUniqueKeys
	}
	if cfg.MaxPostdataPerURL <= 0 {
		cfg.MaxPostdataPerURL = def.MaxPostdataPerURL
	}
	if cfg.AllowedFiletypes == nil {
		cfg.AllowedFiletypes = def.AllowedFiletypes
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.MaxURLs + defaults.QueueBuffer
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedFiletypes))
	for _, ext := range cfg.AllowedFiletypes {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	return &Frontier{
		cfg:        cfg,
		root:       u,
		origin:     u.Scheme + "://" + u.Host,
		rootURL:    normalize(u),
		allowed:    allowed,
		queue:      make(chan Task, cfg.QueueSize),
		logger:     logger,
		known:      make(map[string]struct{}),
		visited:    make(map[string]struct{}),
		variations: make(map[string]int),
		formSeen:   make(map[string]struct{}),
		formShapes: make(map[string]int),
		formPerURL: make(map[string]int),
		ignored:    make(map[string]struct{}),
	}, nil
}

// Root returns the normalized root URL.
func (f *Frontier) Root() string { return f.rootURL }

// Enqueue adds t without link or form filtering. Only identity dedup and
// queue capacity apply. Used for the root and for probe discoveries.
func (f *Frontier) Enqueue(t Task) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.known[t.Key()]; ok {
		return false
	}
	return f.pushLocked(t) == Admitted
}

// AdmitLink applies the link admission rules to an href found on pageURL
// and enqueues the resolved URL when admitted.
func (f *Frontier) AdmitLink(pageURL, href string) (Task, Reason) {
	t, r := f.resolveLink(pageURL, href)
	if r != Admitted {
		return t, r
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	r = f.checkLinkLocked(t, true)
	if r != Admitted {
		return t, r
	}
	if r = f.pushLocked(t); r == Admitted {
		f.noteVariationLocked(t)
	}
	return t, r
}

// AdmitForm applies the form admission rules to a submission for action
// and enqueues it when admitted.
func (f *Frontier) AdmitForm(action string, form *formdata.Values) (Task, Reason) {
	if form == nil {
		form = formdata.New(0)
	}
	u, err := url.Parse(action)
	if err != nil || !u.IsAbs() {
		return Task{URL: action, Form: form}, SkipInvalid
	}
	t := Task{URL: normalize(u), Form: form}
	if r := f.originCheck(u); r != Admitted {
		return t, r
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	r := f.checkFormLocked(t)
	if r != Admitted {
		return t, r
	}
	if r = f.pushLocked(t); r == Admitted {
		f.noteFormLocked(t)
	}
	return t, r
}

// ShouldSkip reports what admitting t would decide, without recording
// anything. Tasks with a form follow the form rules, others the link rules.
func (f *Frontier) ShouldSkip(t Task) Reason {
	u, err := url.Parse(t.URL)
	if err != nil || !u.IsAbs() {
		return SkipInvalid
	}
	if r := f.originCheck(u); r != Admitted {
		return r
	}
	t.URL = normalize(u)

	f.mu.Lock()
	defer f.mu.Unlock()
	if t.Form != nil {
		return f.checkFormLocked(t)
	}
	return f.checkLinkLocked(t, false)
}

// resolveLink turns a raw href into an absolute task URL. Hrefs with a
// scheme separator are only followed when they start with the root origin.
func (f *Frontier) resolveLink(pageURL, href string) (Task, Reason) {
	href, _, _ = strings.Cut(strings.TrimSpace(href), "#")

	if strings.Contains(href, ":") && !strings.HasPrefix(href, "/") && !strings.HasPrefix(href, f.origin) {
		return Task{URL: href}, SkipScheme
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return Task{URL: href}, SkipInvalid
	}
	ref, err := url.Parse(href)
	if err != nil {
		return Task{URL: href}, SkipInvalid
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return Task{URL: u.String()}, SkipScheme
	}
	if r := f.originCheck(u); r != Admitted {
		return Task{URL: u.String()}, r
	}
	return Task{URL: normalize(u)}, Admitted
}

func (f *Frontier) originCheck(u *url.URL) Reason {
	if !f.cfg.SameOriginOnly {
		return Admitted
	}
	if !strings.EqualFold(u.Scheme, f.root.Scheme) || !strings.EqualFold(u.Host, f.root.Host) {
		return SkipForeign
	}
	return Admitted
}

// checkLinkLocked runs the link rules. With record set, ignored URLs are
// written down. Variation occurrences are noted only once a task is queued.
func (f *Frontier) checkLinkLocked(t Task, record bool) Reason {
	if f.pending+len(f.visited) > f.cfg.MaxURLs {
		return SkipBudget
	}
	if _, ok := f.ignored[t.URL]; ok {
		return SkipIgnored
	}

	u, _ := url.Parse(t.URL)
	if _, ok := f.allowed[Filetype(u.Path)]; !ok {
		if record {
			f.ignoreLocked(t.URL, SkipFiletype)
		}
		return SkipFiletype
	}

	if _, ok := f.known[t.Key()]; ok {
		return SkipKnown
	}

	if u.RawQuery != "" {
		key := variationKey(u)
		if f.variations[key] >= f.cfg.MaxURLUniqueKeys {
			if record {
				f.ignoreLocked(t.URL, SkipVariation)
			}
			return SkipVariation
		}
	}
	return Admitted
}

func (f *Frontier) noteVariationLocked(t Task) {
	u, err := url.Parse(t.URL)
	if err != nil || u.RawQuery == "" {
		return
	}
	f.variations[variationKey(u)]++
}

func (f *Frontier) checkFormLocked(t Task) Reason {
	if f.pending+len(f.visited) > f.cfg.MaxURLs {
		return SkipBudget
	}

	content := checksum.Content(t.Form)
	if _, ok := f.formSeen[content]; ok {
		return SkipFormSeen
	}
	shape := t.URL + "\x00" + checksum.StructuralOf(t.Form)
	if f.formShapes[shape] >= f.cfg.MaxPostdataUniqueKeys {
		return SkipFormLimit
	}
	if f.formPerURL[t.URL] >= f.cfg.MaxPostdataPerURL {
		return SkipFormLimit
	}
	if _, ok := f.known[t.Key()]; ok {
		return SkipKnown
	}
	return Admitted
}

func (f *Frontier) noteFormLocked(t Task) {
	content := checksum.Content(t.Form)
	f.formSeen[content] = struct{}{}
	f.formShapes[t.URL+"\x00"+checksum.StructuralOf(t.Form)]++
	f.formPerURL[t.URL]++
	f.forms = append(f.forms, FormRecord{Content: content, URL: t.URL, Form: t.Form})
}

func (f *Frontier) ignoreLocked(u string, why Reason) {
	if _, ok := f.ignored[u]; ok {
		return
	}
	f.ignored[u] = struct{}{}
	f.ignoredLog = append(f.ignoredLog, u)
	f.logger.Debug("url ignored", slog.String("url", u), slog.String("reason", why.String()))
}

func (f *Frontier) pushLocked(t Task) Reason {
	select {
	case f.queue <- t:
		f.known[t.Key()] = struct{}{}
		f.pending++
		return Admitted
	default:
		return SkipQueueFull
	}
}

// Tasks exposes the pending queue for select loops. Every task received
// from it must be passed to MarkDispatched.
func (f *Frontier) Tasks() <-chan Task {
	return f.queue
}

// Dequeue waits up to timeout for the next pending task. It returns false
// when the wait times out or ctx is done.
func (f *Frontier) Dequeue(ctx context.Context, timeout time.Duration) (Task, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case t := <-f.queue:
		return t, true
	case <-timer.C:
		return Task{}, false
	case <-ctx.Done():
		return Task{}, false
	}
}

// MarkDispatched moves a dequeued task into the visited set. It returns
// false if the task was already visited, in which case it must not be
// fetched.
func (f *Frontier) MarkDispatched(t Task) bool {
	key := t.Key()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pending > 0 {
		f.pending--
	}
	if _, ok := f.visited[key]; ok {
		return false
	}
	f.visited[key] = struct{}{}
	f.order = append(f.order, t)
	return true
}

// IsVisited reports whether t has been dispatched.
func (f *Frontier) IsVisited(t Task) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visited[t.Key()]
	return ok
}

// Visited returns dispatched tasks in dispatch order.
func (f *Frontier) Visited() []Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Task, len(f.order))
	copy(out, f.order)
	return out
}

// Ignored returns ignored URLs in the order they were first ignored.
func (f *Frontier) Ignored() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ignoredLog))
	copy(out, f.ignoredLog)
	return out
}

// Forms returns the admitted form records.
func (f *Frontier) Forms() []FormRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FormRecord, len(f.forms))
	copy(out, f.forms)
	return out
}

// Stats returns current counters.
func (f *Frontier) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{
		Pending: f.pending,
		Fetched: len(f.visited),
		Ignored: len(f.ignoredLog),
		Forms:   len(f.forms),
	}
}

// Filetype returns the lower-cased extension of the last path segment,
// with its dot, or "" when there is none.
func Filetype(p string) string {
	return strings.ToLower(path.Ext(p))
}

func variationKey(u *url.URL) string {
	params := formdata.ParseQuery(u.RawQuery)
	return u.Scheme + "://" + u.Host + u.EscapedPath() + "\x00" + checksum.StructuralOf(params)
}

// normalize drops the fragment and gives an empty path a "/".
func normalize(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	if c.Path == "" && c.Opaque == "" {
		c.Path = "/"
	}
	return c.String()
}
