package finding

import (
	"fmt"
	"strings"
)

// Severity is the lowercase level a detection script assigns to its
// findings.
type Severity string

const (
	Critical Severity = "critical"
	High     Severity = "high"
	Medium   Severity = "medium"
	Low      Severity = "low"
	// Info is used by scripts that declare no severity.
	Info Severity = "info"
)

// rank orders levels for sorting and the -fail-on-findings gate.
var rank = map[Severity]int{
	Info:     1,
	Low:      2,
	Medium:   3,
	High:     4,
	Critical: 5,
}

// ParseSeverity parses s case-insensitively. An empty string yields Info.
func ParseSeverity(s string) (Severity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Info, nil
	}
	if sev := Severity(s); sev.IsValid() {
		return sev, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
}

func (s Severity) IsValid() bool {
	_, ok := rank[s]
	return ok
}

// Score is 1 for Info up to 5 for Critical, and 0 for anything unknown.
func (s Severity) Score() int {
	return rank[s]
}

// AtLeast reports whether s is as severe as floor or more.
func (s Severity) AtLeast(floor Severity) bool {
	return s.Score() >= floor.Score()
}

func (s Severity) String() string {
	return string(s)
}
