package inject

import "errors"

// Sentinel errors for request building.
// Callers should use errors.Is() to check for these.
var (
	// ErrNotProbe indicates a script without filesystem-probe data.
	ErrNotProbe = errors.New("inject: script is not a filesystem probe")

	// ErrNotActive indicates a script without injection data.
	ErrNotActive = errors.New("inject: script is not an active script")

	// ErrBadURL indicates a probe or base URL that cannot be resolved.
	ErrBadURL = errors.New("inject: unresolvable URL")
)
