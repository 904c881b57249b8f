// Package defaults provides canonical default values for crawlscan.
// This is the single source of truth for crawl budgets, worker counts
// and other runtime configuration defaults.
//
// Usage:
//
//	cfg.MaxURLs = defaults.MaxURLs
//	req.Header.Set("User-Agent", defaults.UserAgent(""))
//
// Reference these constants instead of hardcoding values like `MaxURLs: 200`.
package defaults

import "fmt"

// Version is the current crawlscan version
const Version = "1.2.0"

// ToolName is used for service names, user agents and report headers.
const ToolName = "crawlscan"

// ============================================================================
// CRAWL BUDGETS
// ============================================================================

const (
	// MaxURLs caps pending + fetched tasks for one crawl (200)
	MaxURLs = 200

	// MaxURLUniqueKeys bounds parameter-name combinations per URL path (1)
	MaxURLUniqueKeys = 1

	// MaxPostdataUniqueKeys bounds filled variants per form shape (1)
	MaxPostdataUniqueKeys = 1

	// MaxPostdataPerURL bounds forms recorded per action URL (10)
	MaxPostdataPerURL = 10

	// RandomTokenSize is the length of synthesized form values (8)
	RandomTokenSize = 8
)

// AllowedFiletypes lists the extensions the frontier follows.
// The empty string stands for "no extension".
var AllowedFiletypes = []string{"", ".php", ".aspx", ".asp", ".html", ".jsp", ".xhtml", ".htm"}

// ============================================================================
// CONCURRENCY SETTINGS
// ============================================================================

const (
	// FetchWorkers is the default number of concurrent fetches (10)
	FetchWorkers = 10

	// ScanWorkers is the default number of concurrent script runs (10)
	ScanWorkers = 10

	// QueueBuffer sizes the scanner result queue (1024)
	QueueBuffer = 1024
)

// ============================================================================
// CONTENT TYPES
// ============================================================================

const (
	// ContentTypeForm is used for form submissions
	ContentTypeForm = "application/x-www-form-urlencoded"

	// AcceptHTML accepts HTML and related types (standard browser)
	AcceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// ============================================================================
// USER AGENTS
// ============================================================================

// UAMinimal is a minimal user agent
const UAMinimal = "crawlscan/" + Version

// UserAgent returns the crawlscan user agent with context
func UserAgent(context string) string {
	if context == "" {
		return UAMinimal
	}
	return fmt.Sprintf("crawlscan/%s (%s)", Version, context)
}
