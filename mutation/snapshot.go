package mutation

// InvocationSnapshot is a point-in-time view of one invocation.
type InvocationSnapshot struct {
	Key     string
	Status  Status
	Data    any
	HasData bool
	Err     error
	Vars    any
}

// EntrySnapshot is a point-in-time view of one entry.
type EntrySnapshot struct {
	ID          string
	Name        string
	Invocations []InvocationSnapshot
}

// Invocation returns the snapshot for key.
func (s EntrySnapshot) Invocation(key string) (InvocationSnapshot, bool) {
	for _, inv := range s.Invocations {
		if inv.Key == key {
			return inv, true
		}
	}
	return InvocationSnapshot{}, false
}
