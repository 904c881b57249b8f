package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/waftester/crawlscan/pkg/finding"
)

const maxEvidence = 60

var titleCaser = cases.Title(language.English)

// Label returns a display label for a category: "fs" becomes
// "Filesystem", others are title-cased.
func Label(c finding.Category) string {
	if c == finding.Filesystem {
		return "Filesystem"
	}
	return titleCaser.String(string(c))
}

// RenderFindings returns the findings as a table, one row per finding.
func RenderFindings(findings []*finding.Finding) string {
	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, []string{
			strings.ToUpper(f.Severity.String()),
			f.Script,
			Label(f.Category),
			strconv.Itoa(f.StatusCode),
			f.URL,
			truncate(f.Evidence, maxEvidence),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(BorderStyle).
		Headers("SEVERITY", "SCRIPT", "CATEGORY", "STATUS", "URL", "EVIDENCE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			if col == 0 && row >= 0 && row < len(findings) {
				return SeverityStyle(findings[row].Severity)
			}
			return CellStyle
		})
	return t.Render()
}

// Summary is the end-of-run overview.
type Summary struct {
	Result *finding.ScanResult
	Output string
}

// PrintSummary writes counters, the findings table and severity totals.
func PrintSummary(w io.Writer, s Summary) {
	r := s.Result
	PrintOptions(w,
		[2]string{"Session", r.Session},
		[2]string{"Target", r.Target},
		[2]string{"Duration", r.Duration.Round(1e6).String()},
		[2]string{"Fetched", strconv.Itoa(r.Fetched)},
		[2]string{"Scanned", strconv.FormatInt(r.Scanned, 10)},
		[2]string{"Ignored", strconv.Itoa(r.Ignored)},
		[2]string{"Report", s.Output},
	)

	if len(r.Findings) == 0 {
		fmt.Fprintln(w, LabelStyle.Render("No findings."))
		return
	}
	fmt.Fprintln(w, RenderFindings(r.Findings))

	counts := r.CountBySeverity()
	var parts []string
	for _, sev := range []finding.Severity{finding.Critical, finding.High, finding.Medium, finding.Low, finding.Info} {
		if n := counts[sev]; n > 0 {
			parts = append(parts, SeverityStyle(sev).Render(fmt.Sprintf("%s: %d", titleCaser.String(sev.String()), n)))
		}
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
