package frontier

import (
	"github.com/waftester/crawlscan/pkg/formdata"
	"github.com/waftester/crawlscan/pkg/httpclient"
)

// Task is one (url, form data) pair to fetch. A nil Form means a plain GET.
// Tasks are values: two tasks with the same URL and equal forms are the
// same task.
type Task struct {
	URL  string
	Form *formdata.Values
}

// Key returns the identity of the task.
func (t Task) Key() string {
	return t.URL + "\x00" + t.Form.Key()
}

// Request returns the HTTP request that fetches the task.
func (t Task) Request() *httpclient.Request {
	return &httpclient.Request{URL: t.URL, Form: t.Form.Clone()}
}

// Reason explains an admission decision.
type Reason int

const (
	Admitted Reason = iota
	SkipBudget
	SkipInvalid
	SkipScheme
	SkipForeign
	SkipIgnored
	SkipFiletype
	SkipVariation
	SkipKnown
	SkipFormSeen
	SkipFormLimit
	SkipQueueFull
)

var reasonNames = [...]string{
	Admitted:      "admitted",
	SkipBudget:    "budget",
	SkipInvalid:   "invalid",
	SkipScheme:    "scheme",
	SkipForeign:   "foreign",
	SkipIgnored:   "ignored",
	SkipFiletype:  "filetype",
	SkipVariation: "variation",
	SkipKnown:     "known",
	SkipFormSeen:  "form_seen",
	SkipFormLimit: "form_limit",
	SkipQueueFull: "queue_full",
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// FormRecord is a form submission the frontier has admitted.
type FormRecord struct {
	Content string
	URL     string
	Form    *formdata.Values
}

// Stats is a point-in-time view of the frontier.
type Stats struct {
	Pending int `json:"pending"`
	Fetched int `json:"fetched"`
	Ignored int `json:"ignored"`
	Forms   int `json:"forms"`
}
