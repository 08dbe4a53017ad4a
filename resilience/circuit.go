package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CircuitState is the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed lets every call through.
	CircuitClosed CircuitState = iota
	// CircuitOpen refuses every call.
	CircuitOpen
	// CircuitHalfOpen lets a limited number of probe calls through.
	CircuitHalfOpen
)

// String returns the string representation of the state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the number of concurrent probes allowed.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called after every transition, outside the breaker's lock.
	OnStateChange func(from, to CircuitState)

	// IsFailure decides whether an error counts against the circuit.
	// Default: every non-nil error except context.Canceled.
	IsFailure func(err error) bool

	// Now is the clock. Default: time.Now.
	Now func() time.Time
}

// CircuitBreaker stops calling a failing collaborator.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - A refused call never reaches op and returns ErrCircuitOpen.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu          sync.Mutex
	state       CircuitState
	failures    int
	openedAt    time.Time
	probes      int
	refused     int64
	lastFailure error
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = defaultIsFailure
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &CircuitBreaker{config: config}
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// Execute runs op unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := op(ctx)
	cb.record(err)
	return err
}

// State returns the current state, moving open to half-open once the reset
// timeout has passed.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	changes := cb.refreshLocked()
	state := cb.state
	cb.mu.Unlock()
	cb.notify(changes)
	return state
}

// Reset closes the circuit and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	var changes []transition
	if cb.state != CircuitClosed {
		changes = append(changes, cb.setLocked(CircuitClosed))
	}
	cb.failures = 0
	cb.lastFailure = nil
	cb.mu.Unlock()
	cb.notify(changes)
}

// Stats returns a snapshot of the breaker.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	changes := cb.refreshLocked()
	stats := CircuitBreakerStats{
		State:       cb.state,
		Failures:    cb.failures,
		Refused:     cb.refused,
		OpenedAt:    cb.openedAt,
		LastFailure: cb.lastFailure,
	}
	cb.mu.Unlock()
	cb.notify(changes)
	return stats
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	changes := cb.refreshLocked()
	var err error
	switch cb.state {
	case CircuitOpen:
		err = ErrCircuitOpen
	case CircuitHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxRequests {
			err = ErrCircuitOpen
		} else {
			cb.probes++
		}
	}
	if err != nil {
		cb.refused++
	}
	cb.mu.Unlock()
	cb.notify(changes)
	return err
}

func (cb *CircuitBreaker) record(err error) {
	failed := cb.config.IsFailure(err)

	cb.mu.Lock()
	var changes []transition
	switch cb.state {
	case CircuitClosed:
		if !failed {
			cb.failures = 0
			break
		}
		cb.failures++
		cb.lastFailure = err
		if cb.failures >= cb.config.MaxFailures {
			changes = append(changes, cb.setLocked(CircuitOpen))
		}
	case CircuitHalfOpen:
		if failed {
			cb.lastFailure = err
			changes = append(changes, cb.setLocked(CircuitOpen))
		} else {
			cb.failures = 0
			changes = append(changes, cb.setLocked(CircuitClosed))
		}
	}
	cb.mu.Unlock()
	cb.notify(changes)
}

type transition struct{ from, to CircuitState }

func (cb *CircuitBreaker) setLocked(to CircuitState) transition {
	t := transition{from: cb.state, to: to}
	cb.state = to
	cb.probes = 0
	if to == CircuitOpen {
		cb.openedAt = cb.config.Now()
	}
	return t
}

func (cb *CircuitBreaker) refreshLocked() []transition {
	if cb.state == CircuitOpen && cb.config.Now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		return []transition{cb.setLocked(CircuitHalfOpen)}
	}
	return nil
}

func (cb *CircuitBreaker) notify(changes []transition) {
	if cb.config.OnStateChange == nil {
		return
	}
	for _, t := range changes {
		cb.config.OnStateChange(t.from, t.to)
	}
}

// CircuitBreakerStats reports breaker state and counters.
type CircuitBreakerStats struct {
	State       CircuitState
	Failures    int
	Refused     int64
	OpenedAt    time.Time
	LastFailure error
}
