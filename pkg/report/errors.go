package report

import "errors"

var (
	// ErrUnknownFormat is returned for an unsupported output format.
	ErrUnknownFormat = errors.New("report: unknown output format")

	// ErrNoTemplate is returned when the template format has no template.
	ErrNoTemplate = errors.New("report: no template specified")
)
