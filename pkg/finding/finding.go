package finding

import (
	"strings"
	"time"

	"github.com/waftester/crawlscan/pkg/formdata"
)

// Category says which stage of the script pipeline produced a finding.
type Category string

const (
	// Passive findings come from inspecting an already fetched response.
	Passive Category = "passive"

	// Active findings come from a request carrying an injected payload.
	Active Category = "active"

	// Filesystem findings come from probing a fixed path on the target.
	Filesystem Category = "fs"
)

// Snapshot records the request that produced the matching response.
// For active findings Location, Param and Payload name the injection point.
type Snapshot struct {
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	Form     *formdata.Values  `json:"form,omitempty"`
	Header   map[string]string `json:"header,omitempty"`
	Location string            `json:"location,omitempty"`
	Param    string            `json:"param,omitempty"`
	Payload  string            `json:"payload,omitempty"`
}

// Finding is one positive match.
type Finding struct {
	Script      string    `json:"script"`
	Category    Category  `json:"category"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	StatusCode  int       `json:"status_code"`
	MatchName   string    `json:"match_name,omitempty"`
	Location    string    `json:"location"`
	Evidence    string    `json:"evidence"`
	Request     *Snapshot `json:"request"`
	Time        time.Time `json:"time"`
}

// Key identifies a finding for de-duplication: script, URL, method,
// injected parameter and evidence.
func (f *Finding) Key() string {
	var method, param string
	if f.Request != nil {
		method = f.Request.Method
		param = f.Request.Location + ":" + f.Request.Param
	}
	return strings.Join([]string{f.Script, f.URL, method, param, f.Evidence}, "\x00")
}
