package mutation

import (
	"iter"
	"slices"
	"sync"
)

// Registry maps invocation keys to invocations, preserving insertion order.
type Registry[R, V any] struct {
	mu    sync.RWMutex
	items map[string]*Invocation[R, V]
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry[R, V any]() *Registry[R, V] {
	return &Registry[R, V]{
		items: make(map[string]*Invocation[R, V]),
	}
}

// Get returns the invocation for key.
func (r *Registry[R, V]) Get(key string) (*Invocation[R, V], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.items[key]
	return inv, ok
}

// GetOrCreate returns the invocation for key, creating an idle one if absent.
// created reports whether a new invocation was added.
func (r *Registry[R, V]) GetOrCreate(key string) (inv *Invocation[R, V], created bool) {
	if inv, ok := r.Get(key); ok {
		return inv, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have created it between the read and write locks.
	if inv, ok := r.items[key]; ok {
		return inv, false
	}
	inv = newInvocation[R, V](key)
	r.items[key] = inv
	r.order = append(r.order, key)
	return inv, true
}

// Remove detaches and discards the invocation for key.
// It reports whether an invocation was removed.
func (r *Registry[R, V]) Remove(key string) bool {
	r.mu.Lock()
	inv, ok := r.items[key]
	if ok {
		delete(r.items, key)
		if i := slices.Index(r.order, key); i >= 0 {
			r.order = slices.Delete(r.order, i, i+1)
		}
	}
	r.mu.Unlock()

	if ok {
		inv.detach()
	}
	return ok
}

// Clear detaches every invocation and returns the removed keys in order.
func (r *Registry[R, V]) Clear() []string {
	r.mu.Lock()
	items, order := r.items, r.order
	r.items = make(map[string]*Invocation[R, V])
	r.order = nil
	r.mu.Unlock()

	for _, key := range order {
		items[key].detach()
	}
	return order
}

// Len returns the number of invocations.
func (r *Registry[R, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Keys returns the keys in insertion order.
func (r *Registry[R, V]) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// All iterates over the invocations in insertion order.
//
// Each range takes its own snapshot of the mapping, so the sequence is finite,
// can be ranged again, and is unaffected by concurrent adds and removes.
func (r *Registry[R, V]) All() iter.Seq2[string, *Invocation[R, V]] {
	return func(yield func(string, *Invocation[R, V]) bool) {
		r.mu.RLock()
		keys := slices.Clone(r.order)
		invs := make([]*Invocation[R, V], len(keys))
		for i, k := range keys {
			invs[i] = r.items[k]
		}
		r.mu.RUnlock()

		for i, k := range keys {
			if !yield(k, invs[i]) {
				return
			}
		}
	}
}
