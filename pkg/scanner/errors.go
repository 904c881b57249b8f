package scanner

import "errors"

var (
	// ErrNoCatalog is returned when a scanner is built without scripts.
	ErrNoCatalog = errors.New("scanner: no script catalog")

	// ErrNoRoot is returned when filesystem probes have no crawl root.
	ErrNoRoot = errors.New("scanner: no crawl root")
)
