package inspect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonwraymond/mutcache/mutation"
	"github.com/jonwraymond/mutcache/observe"
)

// ErrEntryNotFound is returned by DescribeEntry for unknown entry IDs.
var ErrEntryNotFound = errors.New("inspect: entry not found")

// DefaultHistory is the number of recent events kept when no size is given.
const DefaultHistory = 256

// Activity counts lifecycle events seen for one entry.
type Activity struct {
	Added     int64 `json:"added"`
	Removed   int64 `json:"removed"`
	Started   int64 `json:"started"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Discarded int64 `json:"discarded"`
}

// EntrySummary is one row of ListEntries.
type EntrySummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Invocations int      `json:"invocations"`
	Loading     int      `json:"loading"`
	Activity    Activity `json:"activity"`
}

// InvocationView is the display form of one invocation.
type InvocationView struct {
	Key    string `json:"key"`
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
	Vars   any    `json:"vars,omitempty"`
}

// EntryDetail is the result of DescribeEntry.
type EntryDetail struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Activity    Activity         `json:"activity"`
	Invocations []InvocationView `json:"invocations"`
}

// EventView is the display form of a lifecycle event.
type EventView struct {
	Type      string    `json:"type"`
	Entry     string    `json:"entry"`
	Mutation  string    `json:"mutation"`
	Key       string    `json:"key,omitempty"`
	Task      string    `json:"task,omitempty"`
	Status    string    `json:"status,omitempty"`
	Error     string    `json:"error,omitempty"`
	Discarded bool      `json:"discarded,omitempty"`
	Time      time.Time `json:"time"`
}

// Inspector is a diagnostic port over a mutation cache. It subscribes to the
// cache's lifecycle events and answers listing queries for display.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Lifecycle: Close unsubscribes; queries keep working on the cache afterwards.
type Inspector struct {
	cache       *mutation.Cache
	logger      observe.Logger
	unsubscribe func()

	mu       sync.Mutex
	activity map[string]*Activity
	history  []EventView
	next     int
	full     bool
}

// Option configures an Inspector.
type Option func(*inspectorOptions)

type inspectorOptions struct {
	history int
	logger  observe.Logger
}

// WithHistory sets how many recent events are kept.
func WithHistory(n int) Option {
	return func(o *inspectorOptions) {
		if n > 0 {
			o.history = n
		}
	}
}

// WithLogger logs every event at debug level.
func WithLogger(l observe.Logger) Option {
	return func(o *inspectorOptions) {
		o.logger = l
	}
}

// New attaches an inspector to c.
func New(c *mutation.Cache, opts ...Option) *Inspector {
	o := inspectorOptions{history: DefaultHistory, logger: observe.NewNoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	insp := &Inspector{
		cache:    c,
		logger:   o.logger,
		activity: make(map[string]*Activity),
		history:  make([]EventView, o.history),
	}
	insp.unsubscribe = c.Subscribe(insp.handle)
	return insp
}

// Close detaches the inspector from the cache.
func (i *Inspector) Close() {
	i.unsubscribe()
}

func (i *Inspector) handle(ev mutation.Event) {
	i.mu.Lock()
	a := i.activityLocked(ev.EntryID)
	switch ev.Type {
	case mutation.EventEnsure:
		// Entry registered; counters start at zero.
	case mutation.EventAddInvocation:
		a.Added++
	case mutation.EventRemoveInvocation:
		a.Removed++
	case mutation.EventStart:
		a.Started++
	case mutation.EventSettle:
		switch {
		case ev.Discarded:
			a.Discarded++
		case ev.Status == mutation.StatusError:
			a.Failed++
		default:
			a.Succeeded++
		}
	default:
		i.mu.Unlock()
		i.logger.Warn(context.Background(), "inspect: unknown event type",
			observe.Field{Key: "event", Value: string(ev.Type)},
		)
		return
	}
	view := viewEvent(ev)
	i.appendLocked(view)
	i.mu.Unlock()

	i.logger.Debug(context.Background(), "mutation event",
		observe.Field{Key: "event", Value: view.Type},
		observe.Field{Key: "mutation.entry", Value: view.Entry},
		observe.Field{Key: "mutation.key", Value: view.Key},
	)
}

func (i *Inspector) activityLocked(id string) *Activity {
	a, ok := i.activity[id]
	if !ok {
		a = &Activity{}
		i.activity[id] = a
	}
	return a
}

func (i *Inspector) appendLocked(v EventView) {
	i.history[i.next] = v
	i.next = (i.next + 1) % len(i.history)
	if i.next == 0 {
		i.full = true
	}
}

// ListEntries returns one summary per cache entry, in creation order.
func (i *Inspector) ListEntries() []EntrySummary {
	snaps := i.cache.Entries()

	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]EntrySummary, 0, len(snaps))
	for _, s := range snaps {
		sum := EntrySummary{
			ID:          s.ID,
			Name:        s.Name,
			Invocations: len(s.Invocations),
		}
		for _, inv := range s.Invocations {
			if inv.Status == mutation.StatusLoading {
				sum.Loading++
			}
		}
		if a, ok := i.activity[s.ID]; ok {
			sum.Activity = *a
		}
		out = append(out, sum)
	}
	return out
}

// DescribeEntry returns the invocations of one entry.
func (i *Inspector) DescribeEntry(id string) (EntryDetail, error) {
	snap, ok := i.cache.Entry(id)
	if !ok {
		return EntryDetail{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	detail := EntryDetail{
		ID:          snap.ID,
		Name:        snap.Name,
		Invocations: make([]InvocationView, 0, len(snap.Invocations)),
	}
	for _, inv := range snap.Invocations {
		v := InvocationView{
			Key:    inv.Key,
			Status: inv.Status.String(),
			Data:   inv.Data,
			Vars:   inv.Vars,
		}
		if inv.Err != nil {
			v.Error = inv.Err.Error()
		}
		detail.Invocations = append(detail.Invocations, v)
	}

	i.mu.Lock()
	if a, ok := i.activity[id]; ok {
		detail.Activity = *a
	}
	i.mu.Unlock()
	return detail, nil
}

// Recent returns up to n of the most recent events, oldest first.
// n <= 0 returns everything kept.
func (i *Inspector) Recent(n int) []EventView {
	i.mu.Lock()
	defer i.mu.Unlock()

	var all []EventView
	if i.full {
		all = append(all, i.history[i.next:]...)
	}
	all = append(all, i.history[:i.next]...)

	if n > 0 && n < len(all) {
		all = all[len(all)-n:]
	}
	return all
}

func viewEvent(ev mutation.Event) EventView {
	v := EventView{
		Type:      string(ev.Type),
		Entry:     ev.EntryID,
		Mutation:  ev.Mutation,
		Key:       ev.Key,
		Task:      ev.Task.String(),
		Discarded: ev.Discarded,
		Time:      ev.Time,
	}
	if ev.Type == mutation.EventStart || ev.Type == mutation.EventSettle {
		v.Status = ev.Status.String()
	}
	if ev.Err != nil {
		v.Error = ev.Err.Error()
	}
	return v
}
