package script

import "errors"

// Sentinel errors for script loading. Every error wraps one of these;
// callers should use errors.Is() to check for them.
var (
	// ErrInvalidScript indicates a script file that could not be decoded or
	// is missing required fields.
	ErrInvalidScript = errors.New("script: invalid script")

	// ErrUnknownCategory indicates a script that is neither active, passive
	// nor a filesystem probe.
	ErrUnknownCategory = errors.New("script: unknown category")

	// ErrDuplicateName indicates a second script with an already loaded name.
	ErrDuplicateName = errors.New("script: duplicate name")

	// ErrNoDirectory indicates the script directory does not exist or is
	// not readable.
	ErrNoDirectory = errors.New("script: script directory unavailable")
)
