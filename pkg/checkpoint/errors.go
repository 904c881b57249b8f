package checkpoint

import "errors"

var (
	// ErrNoPath is returned when a writer has no file to write to.
	ErrNoPath = errors.New("checkpoint: no progress file path")

	// ErrBadEntry is returned for a visited entry that is not a
	// [url, formData|null] pair.
	ErrBadEntry = errors.New("checkpoint: malformed visited entry")
)
