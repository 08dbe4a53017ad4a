package contacts

import "go.trai.ch/zerr"

// Sentinel errors returned by Client.
var (
	// ErrNotFound is returned when the API answers 404.
	ErrNotFound = zerr.New("contact not found")

	// ErrUnexpectedStatus is returned for any other non-2xx answer.
	ErrUnexpectedStatus = zerr.New("unexpected status")

	// ErrInvalidBaseURL is returned by New for unusable addresses.
	ErrInvalidBaseURL = zerr.New("invalid base URL")
)
