// Package mutation provides a multi-keyed cache for asynchronous mutations.
//
// A mutation is a side-effecting call against a remote resource, described by
// a [Definition]. [Ensure] maps each definition (by pointer identity) to one
// [Entry], and every entry keeps a [Registry] of independently tracked
// [Invocation]s, one per application-chosen key.
//
// # Lifecycle
//
// An invocation moves idle → loading → success|error and returns to loading
// whenever it is called again. Data from the last success stays readable while
// a newer call is loading and after a later failure.
//
// Every call gets a fresh [TaskID]. Starting a call rebinds the invocation to
// that identity, so only the most recently started call for a key may write
// success or error; completions of superseded calls are discarded. Discarding
// never changes what the caller of the superseded call receives: [Mutate]
// always returns that call's own outcome.
//
// # Usage
//
//	c := mutation.New(mutation.WithLogger(logger))
//	defer c.Close(context.Background())
//
//	deleteContact := &mutation.Definition[struct{}, int, mutation.NoContext]{
//	    Name: "deleteContact",
//	    Fn: func(ctx context.Context, id int, _ mutation.NoContext) (struct{}, error) {
//	        return struct{}{}, client.Delete(ctx, id)
//	    },
//	}
//
//	m := mutation.NewMultiMutation(c, deleteContact)
//	m.Mutate(ctx, "contact-7", 7)
//	if m.IsLoading("contact-7") { ... }
//
// # Concurrency
//
// All types are safe for concurrent use. Each invocation guards its state with
// its own lock and readers always see a complete [State]; registries and the
// cache lock their mappings independently. Subscribers registered with
// [Cache.Subscribe] are called synchronously, after the change and outside any
// lock.
package mutation
