package resilience

import "errors"

// Sentinel errors returned by guards.
var (
	// ErrCircuitOpen is returned when the circuit breaker refuses a call.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrBulkheadFull is returned when no call slot became available.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when a call was abandoned after its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")
)
