package resilience

import (
	"context"
	"time"
)

// Executor composes guards around a collaborator call.
// It satisfies mutation.Executor and can be shared by several definitions.
type Executor struct {
	bulkhead       *Bulkhead
	circuitBreaker *CircuitBreaker
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor. With no options it calls op directly.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithBulkhead caps in-flight calls.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) {
		e.bulkhead = b
	}
}

// WithCircuitBreaker refuses calls while the collaborator keeps failing.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuitBreaker = cb
	}
}

// WithTimeout abandons calls that take longer than d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(d)
	}
}

// Execute runs op through the configured guards.
//
// Guards apply outermost first: bulkhead, circuit breaker, timeout. A call
// refused by the bulkhead does not count against the circuit, and an
// abandoned call counts as a failure.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	call := op

	if e.timeout != nil {
		inner := call
		call = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, inner)
		}
	}
	if e.circuitBreaker != nil {
		inner := call
		call = func(ctx context.Context) error {
			return e.circuitBreaker.Execute(ctx, inner)
		}
	}
	if e.bulkhead != nil {
		inner := call
		call = func(ctx context.Context) error {
			return e.bulkhead.Execute(ctx, inner)
		}
	}

	return call(ctx)
}
