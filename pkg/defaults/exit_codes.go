package defaults

// Exit codes for the CLI.
const (
	ExitSuccess      = 0 // Crawl and scan completed
	ExitUserError    = 1 // Invalid arguments or configuration
	ExitFindingsGate = 2 // High or critical findings with -fail-on-findings
)
