package mutation

import "errors"

// Sentinel errors for mutation operations.
var (
	// ErrMissingVars is returned before any state change when a keyed call is
	// made with zero-valued variables and the definition does not allow them.
	ErrMissingVars = errors.New("mutation: variables are required for multi-mutation")

	// ErrInvalidKey is returned for blank keys or keys containing line breaks.
	ErrInvalidKey = errors.New("mutation: key is invalid")

	// ErrKeyTooLong is returned for keys longer than MaxKeyLength.
	ErrKeyTooLong = errors.New("mutation: key exceeds max length")

	// ErrCallback wraps failures of OnSuccess, OnError and OnSettled.
	ErrCallback = errors.New("mutation: callback failed")

	// ErrPanic wraps a panic recovered from a collaborator or callback.
	ErrPanic = errors.New("mutation: panic recovered")

	// ErrClosed is returned when adding invocations to a closed cache.
	ErrClosed = errors.New("mutation: cache is closed")
)
