package match

import "errors"

// Sentinel errors for match spec compilation.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidSpec indicates a malformed Spec (unknown kind or
	// location, bad regular expression, unparseable status list).
	ErrInvalidSpec = errors.New("match: invalid spec")

	// ErrExpression indicates an expr spec that failed to compile.
	ErrExpression = errors.New("match: invalid expression")
)
