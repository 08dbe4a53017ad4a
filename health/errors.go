package health

import "errors"

var (
	// ErrCheckTimeout is set on results of checks that outlived the deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound is returned by Aggregator.Check for unknown names.
	ErrCheckerNotFound = errors.New("health: checker not found")
)
