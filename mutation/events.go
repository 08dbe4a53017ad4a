package mutation

import "time"

// EventType names a cache lifecycle event.
type EventType string

// Lifecycle events emitted by the cache.
const (
	EventEnsure           EventType = "ensure"
	EventAddInvocation    EventType = "add-invocation"
	EventRemoveInvocation EventType = "remove-invocation"
	EventStart            EventType = "start"
	EventSettle           EventType = "settle"
)

// Event describes one lifecycle change.
type Event struct {
	Type     EventType
	EntryID  string
	Mutation string
	Key      string
	Task     TaskID
	// Status is loading for start, and the outcome status for settle.
	Status Status
	Err    error
	// Discarded is set on settle when the completion was superseded or orphaned.
	Discarded bool
	Time      time.Time
}

// Subscriber receives lifecycle events. It is called synchronously and must
// not block; it may call back into the cache.
type Subscriber func(Event)

type subscription struct {
	id uint64
	fn Subscriber
}
