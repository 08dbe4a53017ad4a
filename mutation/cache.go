package mutation

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/jonwraymond/mutcache/observe"
)

// Cache maps mutation definitions to their entries.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Lifecycle: construct with New, tear down with Close. Caches are independent.
// - Events: subscribers see every change after it is applied, in program order per goroutine.
type Cache struct {
	mu      sync.RWMutex
	entries map[any]entry
	byID    map[string]entry
	order   []entry
	nextID  int
	closed  bool

	subMu   sync.RWMutex
	subs    []subscription
	nextSub uint64

	logger     observe.Logger
	middleware *observe.Middleware
	now        func() time.Time

	detached sync.WaitGroup
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for lifecycle diagnostics.
func WithLogger(l observe.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMiddleware instruments every collaborator call.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Cache) {
		c.middleware = mw
	}
}

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[any]entry),
		byID:    make(map[string]entry),
		logger:  observe.NewNoopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ensure returns the entry for def, creating it on first use.
// Repeated calls with the same pointer return the same entry and emit nothing.
// After Close it returns a detached entry that is neither stored nor
// announced; adding invocations to it fails with ErrClosed.
// It panics if def or def.Fn is nil.
func Ensure[R, V, C any](c *Cache, def *Definition[R, V, C]) *Entry[R, V, C] {
	if def == nil || def.Fn == nil {
		panic("mutation: Ensure requires a definition with a non-nil Fn")
	}

	c.mu.RLock()
	existing, ok := c.entries[def]
	c.mu.RUnlock()
	if ok {
		return existing.(*Entry[R, V, C])
	}

	c.mu.Lock()
	if existing, ok := c.entries[def]; ok {
		c.mu.Unlock()
		return existing.(*Entry[R, V, C])
	}
	if c.closed {
		c.mu.Unlock()
		return newEntry("", def)
	}
	c.nextID++
	e := newEntry("m"+strconv.Itoa(c.nextID), def)
	c.entries[def] = e
	c.byID[e.id] = e
	c.order = append(c.order, e)
	c.mu.Unlock()

	c.emit(Event{Type: EventEnsure, EntryID: e.id, Mutation: e.Name()})
	c.logger.Debug(context.Background(), "mutation entry created",
		observe.Field{Key: "mutation.entry", Value: e.id},
		observe.Field{Key: "mutation.name", Value: e.Name()},
	)
	return e
}

// AddInvocation returns the invocation for key in e, creating an idle one if
// needed, and records vars on it. It does not start execution.
func AddInvocation[R, V, C any](c *Cache, e *Entry[R, V, C], key string, vars V) (*Invocation[R, V], error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if c.isClosed() {
		return nil, ErrClosed
	}

	inv, created := e.invocations.GetOrCreate(key)
	inv.setVars(vars)
	if created {
		c.emit(Event{Type: EventAddInvocation, EntryID: e.id, Mutation: e.Name(), Key: key, Status: StatusIdle})
	}
	return inv, nil
}

// RemoveInvocation forgets key in e. A call still in flight for it completes
// without touching any state. It reports whether the key existed.
func RemoveInvocation[R, V, C any](c *Cache, e *Entry[R, V, C], key string) bool {
	if !e.invocations.Remove(key) {
		return false
	}
	c.emit(Event{Type: EventRemoveInvocation, EntryID: e.id, Mutation: e.Name(), Key: key})
	return true
}

// ClearInvocations forgets every key in e and returns them.
func ClearInvocations[R, V, C any](c *Cache, e *Entry[R, V, C]) []string {
	keys := e.clear()
	for _, key := range keys {
		c.emit(Event{Type: EventRemoveInvocation, EntryID: e.id, Mutation: e.Name(), Key: key})
	}
	return keys
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Entries returns a point-in-time listing of every entry, in creation order.
func (c *Cache) Entries() []EntrySnapshot {
	c.mu.RLock()
	order := slices.Clone(c.order)
	c.mu.RUnlock()

	out := make([]EntrySnapshot, 0, len(order))
	for _, e := range order {
		out = append(out, e.Snapshot())
	}
	return out
}

// Entry returns the listing for the entry with the given ID.
func (c *Cache) Entry(id string) (EntrySnapshot, bool) {
	c.mu.RLock()
	e, ok := c.byID[id]
	c.mu.RUnlock()
	if !ok {
		return EntrySnapshot{}, false
	}
	return e.Snapshot(), true
}

// Subscribe registers fn for lifecycle events and returns a function that
// removes it. Calling the returned function more than once is harmless.
func (c *Cache) Subscribe(fn Subscriber) (unsubscribe func()) {
	c.subMu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscription{id: id, fn: fn})
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		c.subs = slices.DeleteFunc(c.subs, func(s subscription) bool { return s.id == id })
	}
}

func (c *Cache) emit(ev Event) {
	c.subMu.RLock()
	if len(c.subs) == 0 {
		c.subMu.RUnlock()
		return
	}
	subs := slices.Clone(c.subs)
	c.subMu.RUnlock()

	ev.Time = c.now()
	for _, s := range subs {
		s.fn(ev)
	}
}

// track reserves a slot for one detached mutation. The closed check and the
// reservation happen under c.mu so Close never starts waiting on a counter
// that is about to grow.
func (c *Cache) track() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.detached.Add(1)
	return nil
}

// detach runs fn on a goroutine. The caller must have reserved a slot with track.
func (c *Cache) detach(fn func()) {
	go func() {
		defer c.detached.Done()
		fn()
	}()
}

// Wait blocks until every detached mutation has finished or ctx is done.
func (c *Cache) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.detached.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new invocations, waits for detached mutations (bounded
// by ctx), then drops every entry and subscriber. Calls still in flight after
// that settle into detached invocations and change nothing.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	err := c.Wait(ctx)

	c.mu.Lock()
	order := c.order
	c.entries = make(map[any]entry)
	c.byID = make(map[string]entry)
	c.order = nil
	c.mu.Unlock()

	for _, e := range order {
		e.clear()
	}

	c.subMu.Lock()
	c.subs = nil
	c.subMu.Unlock()

	return err
}

func (c *Cache) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
