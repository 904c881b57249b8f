package frontier

import "errors"

// Sentinel errors for frontier setup.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidRoot indicates a root URL that is not an absolute http(s) URL.
	ErrInvalidRoot = errors.New("frontier: invalid root URL")
)
