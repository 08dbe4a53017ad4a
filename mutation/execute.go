package mutation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonwraymond/mutcache/observe"
)

// Mutate runs one call of e's definition for inv and returns its outcome.
//
// The invocation moves to loading before Mutate does anything that can block,
// and any earlier call still running for the same key is superseded. The
// outcome is written to inv only if this call is still the tracked one when it
// completes; callbacks run only in that case. Either way the caller receives
// this call's own result and error, joined with any callback failure.
func Mutate[R, V, C any](ctx context.Context, c *Cache, e *Entry[R, V, C], inv *Invocation[R, V], vars V) (R, error) {
	return begin(ctx, c, e, inv, vars)()
}

// begin applies the start transition synchronously and returns the rest of
// the call.
func begin[R, V, C any](ctx context.Context, c *Cache, e *Entry[R, V, C], inv *Invocation[R, V], vars V) func() (R, error) {
	task := newTaskID()
	inv.start(task, vars)
	c.emit(Event{
		Type:     EventStart,
		EntryID:  e.id,
		Mutation: e.Name(),
		Key:      inv.key,
		Task:     task,
		Status:   StatusLoading,
	})

	return func() (R, error) {
		return run(ctx, c, e, inv, task, vars)
	}
}

func run[R, V, C any](ctx context.Context, c *Cache, e *Entry[R, V, C], inv *Invocation[R, V], task TaskID, vars V) (R, error) {
	def := e.def
	meta := observe.MutationMeta{
		Name:    e.Name(),
		EntryID: e.id,
		Key:     inv.key,
		Task:    task.String(),
	}

	var (
		result R
		mctx   C
	)
	call := func(ctx context.Context, _ observe.MutationMeta) error {
		var err error
		if mctx, err = buildContext(ctx, def, vars); err != nil {
			return err
		}
		result, err = guarded(ctx, def, vars, mctx)
		return err
	}
	if c.middleware != nil {
		call = c.middleware.Wrap(call)
	}
	err := call(ctx, meta)

	honored := inv.settle(task, result, err)
	outcome := StatusSuccess
	if err != nil {
		outcome = StatusError
	}
	c.emit(Event{
		Type:      EventSettle,
		EntryID:   e.id,
		Mutation:  e.Name(),
		Key:       inv.key,
		Task:      task,
		Status:    outcome,
		Err:       err,
		Discarded: !honored,
	})

	if !honored {
		if c.middleware != nil {
			c.middleware.Discarded(ctx, meta)
		}
		return result, err
	}

	if cbErr := runCallbacks(ctx, def, result, err, vars, mctx); cbErr != nil {
		c.logger.WithMutation(meta).Error(ctx, "mutation callback failed",
			observe.Field{Key: "error", Value: cbErr},
		)
		return result, errors.Join(err, cbErr)
	}
	return result, err
}

func buildContext[R, V, C any](ctx context.Context, def *Definition[R, V, C], vars V) (mctx C, err error) {
	if def.BuildContext == nil {
		return mctx, nil
	}
	defer recoverInto(&err)
	return def.BuildContext(ctx, vars)
}

// guarded calls def.Fn, through def.Guard when one is set. A guard may give
// up on a call (timeout) while Fn is still running, so Fn's result is handed
// over under a lock and only taken when the guard reports success.
func guarded[R, V, C any](ctx context.Context, def *Definition[R, V, C], vars V, mctx C) (R, error) {
	if def.Guard == nil {
		return callFn(ctx, def.Fn, vars, mctx)
	}

	var (
		mu  sync.Mutex
		out R
	)
	err := def.Guard.Execute(ctx, func(ctx context.Context) error {
		r, err := callFn(ctx, def.Fn, vars, mctx)
		mu.Lock()
		out = r
		mu.Unlock()
		return err
	})

	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		var zero R
		return zero, err
	}
	return out, nil
}

func callFn[R, V, C any](ctx context.Context, fn Func[R, V, C], vars V, mctx C) (result R, err error) {
	defer recoverInto(&err)
	return fn(ctx, vars, mctx)
}

func runCallbacks[R, V, C any](ctx context.Context, def *Definition[R, V, C], result R, err error, vars V, mctx C) error {
	var errs []error

	if err == nil && def.OnSuccess != nil {
		errs = append(errs, callback("onSuccess", func() error {
			return def.OnSuccess(ctx, result, vars, mctx)
		}))
	}
	if err != nil && def.OnError != nil {
		errs = append(errs, callback("onError", func() error {
			return def.OnError(ctx, err, vars, mctx)
		}))
	}
	if def.OnSettled != nil {
		errs = append(errs, callback("onSettled", func() error {
			return def.OnSettled(ctx, result, err, vars, mctx)
		}))
	}

	return errors.Join(errs...)
}

func callback(name string, fn func() error) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrCallback, name, err)
		}
	}()
	defer recoverInto(&err)
	return fn()
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrPanic, r)
	}
}
