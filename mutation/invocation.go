package mutation

import "sync"

// State is a consistent, by-value view of an invocation.
type State[R, V any] struct {
	Key     string
	Status  Status
	Data    R
	HasData bool
	Err     error
	Vars    V
	HasVars bool
	Task    TaskID
}

// IsLoading reports whether a call is in flight.
func (s State[R, V]) IsLoading() bool {
	return s.Status == StatusLoading
}

// Invocation tracks the execution lifecycle of one mutation key.
//
// Status is independent of data freshness: data from the last success stays
// visible while a newer call is loading and after a later failure.
type Invocation[R, V any] struct {
	key string

	mu       sync.RWMutex
	status   Status
	data     R
	hasData  bool
	err      error
	vars     V
	hasVars  bool
	task     TaskID
	detached bool
}

func newInvocation[R, V any](key string) *Invocation[R, V] {
	return &Invocation[R, V]{key: key}
}

// Key returns the invocation key.
func (inv *Invocation[R, V]) Key() string {
	return inv.key
}

// State returns a snapshot of the invocation.
func (inv *Invocation[R, V]) State() State[R, V] {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return State[R, V]{
		Key:     inv.key,
		Status:  inv.status,
		Data:    inv.data,
		HasData: inv.hasData,
		Err:     inv.err,
		Vars:    inv.vars,
		HasVars: inv.hasVars,
		Task:    inv.task,
	}
}

// Status returns the current status.
func (inv *Invocation[R, V]) Status() Status {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.status
}

// Data returns the result of the last successful call.
func (inv *Invocation[R, V]) Data() (R, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.data, inv.hasData
}

// Err returns the failure of the tracked call, if it failed.
func (inv *Invocation[R, V]) Err() error {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.err
}

// Vars returns the variables of the most recent call.
func (inv *Invocation[R, V]) Vars() (V, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.vars, inv.hasVars
}

// IsLoading reports whether a call is in flight.
func (inv *Invocation[R, V]) IsLoading() bool {
	return inv.Status() == StatusLoading
}

// Detached reports whether the invocation was removed from its registry.
func (inv *Invocation[R, V]) Detached() bool {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.detached
}

func (inv *Invocation[R, V]) setVars(vars V) {
	inv.mu.Lock()
	inv.vars, inv.hasVars = vars, true
	inv.mu.Unlock()
}

// start moves the invocation to loading and binds it to task.
// Any call still running for this key is superseded from here on.
func (inv *Invocation[R, V]) start(task TaskID, vars V) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.status = StatusLoading
	inv.vars, inv.hasVars = vars, true
	inv.err = nil
	inv.task = task
}

// settle applies the outcome of task. It returns false, leaving the state
// untouched, when task is no longer the tracked one or the invocation was
// removed.
func (inv *Invocation[R, V]) settle(task TaskID, result R, err error) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.detached || inv.task != task {
		return false
	}
	inv.task = TaskID{}
	if err != nil {
		inv.status = StatusError
		inv.err = err
		return true
	}
	inv.status = StatusSuccess
	inv.data, inv.hasData = result, true
	inv.err = nil
	return true
}

// detach orphans any in-flight task; its settle becomes a no-op.
func (inv *Invocation[R, V]) detach() {
	inv.mu.Lock()
	inv.detached = true
	inv.task = TaskID{}
	inv.mu.Unlock()
}
