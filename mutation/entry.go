package mutation

// Entry pairs a definition with the registry of its keyed invocations.
type Entry[R, V, C any] struct {
	id          string
	def         *Definition[R, V, C]
	invocations *Registry[R, V]
}

func newEntry[R, V, C any](id string, def *Definition[R, V, C]) *Entry[R, V, C] {
	return &Entry[R, V, C]{
		id:          id,
		def:         def,
		invocations: NewRegistry[R, V](),
	}
}

// ID returns the cache-assigned identifier.
func (e *Entry[R, V, C]) ID() string {
	return e.id
}

// Name returns the definition name, falling back to the ID.
func (e *Entry[R, V, C]) Name() string {
	if e.def.Name != "" {
		return e.def.Name
	}
	return e.id
}

// Definition returns the definition this entry was ensured with.
func (e *Entry[R, V, C]) Definition() *Definition[R, V, C] {
	return e.def
}

// Invocations returns the entry's registry.
func (e *Entry[R, V, C]) Invocations() *Registry[R, V] {
	return e.invocations
}

// Snapshot returns a type-erased listing of the entry's invocations.
func (e *Entry[R, V, C]) Snapshot() EntrySnapshot {
	snap := EntrySnapshot{ID: e.id, Name: e.Name()}
	for _, inv := range e.invocations.All() {
		st := inv.State()
		is := InvocationSnapshot{
			Key:     st.Key,
			Status:  st.Status,
			HasData: st.HasData,
			Err:     st.Err,
		}
		if st.HasData {
			is.Data = st.Data
		}
		if st.HasVars {
			is.Vars = st.Vars
		}
		snap.Invocations = append(snap.Invocations, is)
	}
	return snap
}

func (e *Entry[R, V, C]) clear() []string {
	return e.invocations.Clear()
}

// entry is the type-erased view the cache keeps of every Entry.
type entry interface {
	ID() string
	Name() string
	Snapshot() EntrySnapshot
	clear() []string
}

var _ entry = (*Entry[int, int, NoContext])(nil)
