package finding

import "time"

// ScanResult summarizes one crawl session for reports.
type ScanResult struct {
	Session   string        `json:"session"`
	Target    string        `json:"target"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration,format:units"`
	Fetched   int           `json:"fetched"`
	Scanned   int64         `json:"scanned"`
	Ignored   int           `json:"ignored"`
	Findings  []*Finding    `json:"findings"`
}

// MaxSeverity returns the highest severity among the findings, or the
// empty Severity when there are none.
func (r *ScanResult) MaxSeverity() Severity {
	var top Severity
	for _, f := range r.Findings {
		if f.Severity.Score() > top.Score() {
			top = f.Severity
		}
	}
	return top
}

// CountBySeverity tallies findings per severity.
func (r *ScanResult) CountBySeverity() map[Severity]int {
	out := make(map[Severity]int, 5)
	for _, f := range r.Findings {
		out[f.Severity]++
	}
	return out
}
