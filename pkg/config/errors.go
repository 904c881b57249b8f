package config

import "errors"

// Errors returned by Load, ParseArgs and Validate. Validate wraps one of
// them per problem and joins the results.
var (
	// ErrInvalidConfig covers unparseable YAML, unknown keys and
	// out-of-range values.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrMissingRequired is returned when a setting with no default,
	// such as the target URL, was never given.
	ErrMissingRequired = errors.New("config: missing required field")

	// ErrConfigFile is returned when the -config file cannot be read.
	ErrConfigFile = errors.New("config: cannot read config file")
)
