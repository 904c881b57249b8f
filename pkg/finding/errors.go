package finding

import "errors"

// Sentinel errors for finding handling.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidSeverity indicates a severity string outside
	// critical, high, medium, low and info.
	ErrInvalidSeverity = errors.New("finding: invalid severity")
)
