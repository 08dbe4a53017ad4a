package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout applies when Timeout is constructed with a non-positive duration.
const DefaultTimeout = 30 * time.Second

// Timeout abandons calls that outlive a deadline.
//
// The abandoned call keeps running with a cancelled context; whatever it
// returns afterwards is dropped.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout guard.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &Timeout{d: d}
}

// Duration returns the configured deadline.
func (t *Timeout) Duration() time.Duration {
	return t.d
}

// Execute runs op with a deadline. When the deadline passes first, the
// returned error matches both ErrTimeout and context.DeadlineExceeded.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s: %w", ErrTimeout, t.d, ctx.Err())
		}
		return ctx.Err()
	}
}
