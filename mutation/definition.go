package mutation

import "context"

// NoContext is the context type for definitions that do not build one.
type NoContext = struct{}

// Func performs the side effect of a mutation.
type Func[R, V, C any] func(ctx context.Context, vars V, mctx C) (R, error)

// Executor runs an operation under some policy (timeout, bulkhead, circuit
// breaker). *resilience.Executor and its building blocks satisfy it.
type Executor interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// Definition configures a mutation. Its pointer is its identity: two
// definitions share cache state only if they are the same pointer.
type Definition[R, V, C any] struct {
	// Name labels the mutation in events, logs and telemetry.
	Name string

	// Fn performs the mutation. Required.
	Fn Func[R, V, C]

	// BuildContext runs before Fn and produces the value passed to Fn and the
	// callbacks. A failure skips Fn and is handled as a mutation failure.
	BuildContext func(ctx context.Context, vars V) (C, error)

	// OnSuccess runs after a successful call that was not superseded.
	OnSuccess func(ctx context.Context, result R, vars V, mctx C) error

	// OnError runs after a failed call that was not superseded.
	OnError func(ctx context.Context, err error, vars V, mctx C) error

	// OnSettled runs after OnSuccess or OnError.
	OnSettled func(ctx context.Context, result R, err error, vars V, mctx C) error

	// Guard, if set, wraps every call to Fn.
	Guard Executor

	// AllowZeroVars lets keyed calls pass zero-valued variables.
	AllowZeroVars bool
}
