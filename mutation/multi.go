package mutation

import (
	"context"
	"reflect"

	"github.com/jonwraymond/mutcache/observe"
)

// MultiMutation is the keyed facade over one definition's entry. Each key is
// an independent invocation with its own status, data and error.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Isolation: calls for one key never change the state of another.
type MultiMutation[R, V, C any] struct {
	cache *Cache
	entry *Entry[R, V, C]
	keyer Keyer
}

// NewMultiMutation ensures def in c and returns a facade over its entry.
// Facades built from the same cache and definition share state.
func NewMultiMutation[R, V, C any](c *Cache, def *Definition[R, V, C]) *MultiMutation[R, V, C] {
	return &MultiMutation[R, V, C]{
		cache: c,
		entry: Ensure(c, def),
		keyer: DefaultKeyer{},
	}
}

// Entry returns the underlying cache entry.
func (m *MultiMutation[R, V, C]) Entry() *Entry[R, V, C] {
	return m.entry
}

// Data returns the last successful result for key.
func (m *MultiMutation[R, V, C]) Data(key string) (R, bool) {
	if inv, ok := m.entry.invocations.Get(key); ok {
		return inv.Data()
	}
	var zero R
	return zero, false
}

// Error returns the failure of the tracked call for key.
func (m *MultiMutation[R, V, C]) Error(key string) error {
	if inv, ok := m.entry.invocations.Get(key); ok {
		return inv.Err()
	}
	return nil
}

// IsLoading reports whether a call for key is in flight.
func (m *MultiMutation[R, V, C]) IsLoading(key string) bool {
	if inv, ok := m.entry.invocations.Get(key); ok {
		return inv.IsLoading()
	}
	return false
}

// Status returns the status for key; unknown keys are idle.
func (m *MultiMutation[R, V, C]) Status(key string) Status {
	if inv, ok := m.entry.invocations.Get(key); ok {
		return inv.Status()
	}
	return StatusIdle
}

// State returns a snapshot for key.
func (m *MultiMutation[R, V, C]) State(key string) (State[R, V], bool) {
	if inv, ok := m.entry.invocations.Get(key); ok {
		return inv.State(), true
	}
	return State[R, V]{}, false
}

// Vars returns the variables of the most recent call for key.
func (m *MultiMutation[R, V, C]) Vars(key string) (V, bool) {
	if inv, ok := m.entry.invocations.Get(key); ok {
		return inv.Vars()
	}
	var zero V
	return zero, false
}

// Keys returns the tracked keys in insertion order.
func (m *MultiMutation[R, V, C]) Keys() []string {
	return m.entry.invocations.Keys()
}

// MutateAsync runs the mutation for key and waits for its outcome.
//
// The invocation for key is created on first use and is loading by the time
// the collaborator is called. The returned result and error belong to this
// call even when a newer call for the same key superseded it.
func (m *MultiMutation[R, V, C]) MutateAsync(ctx context.Context, key string, vars V) (R, error) {
	var zero R
	if err := m.checkVars(vars); err != nil {
		return zero, err
	}
	inv, err := AddInvocation(m.cache, m.entry, key, vars)
	if err != nil {
		return zero, err
	}
	return Mutate(ctx, m.cache, m.entry, inv, vars)
}

// Mutate starts the mutation for key without waiting for it.
//
// The invocation is loading when Mutate returns. The call runs detached from
// ctx's cancellation and is tracked by Cache.Wait. Its failure is observable
// through Error(key) and is logged; only validation errors are returned.
func (m *MultiMutation[R, V, C]) Mutate(ctx context.Context, key string, vars V) error {
	if err := m.checkVars(vars); err != nil {
		return err
	}
	if err := m.cache.track(); err != nil {
		return err
	}
	inv, err := AddInvocation(m.cache, m.entry, key, vars)
	if err != nil {
		m.cache.detached.Done()
		return err
	}

	run := begin(context.WithoutCancel(ctx), m.cache, m.entry, inv, vars)
	m.cache.detach(func() {
		if _, err := run(); err != nil {
			m.cache.logger.WithMutation(observe.MutationMeta{
				Name:    m.entry.Name(),
				EntryID: m.entry.id,
				Key:     key,
			}).Warn(ctx, "detached mutation failed", observe.Field{Key: "error", Value: err})
		}
	})
	return nil
}

// Forget removes key. A call in flight for it completes without effect.
func (m *MultiMutation[R, V, C]) Forget(key string) bool {
	return RemoveInvocation(m.cache, m.entry, key)
}

// Reset removes every key and returns them.
func (m *MultiMutation[R, V, C]) Reset() []string {
	return ClearInvocations(m.cache, m.entry)
}

// KeyFor derives a key for vars from the definition name.
func (m *MultiMutation[R, V, C]) KeyFor(vars V) (string, error) {
	return m.keyer.Key(m.entry.Name(), vars)
}

func (m *MultiMutation[R, V, C]) checkVars(vars V) error {
	if m.entry.def.AllowZeroVars {
		return nil
	}
	if v := reflect.ValueOf(&vars).Elem(); v.IsZero() {
		return ErrMissingVars
	}
	return nil
}
