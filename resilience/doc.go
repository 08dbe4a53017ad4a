// Package resilience provides guards for mutation collaborator calls.
//
// A guard wraps the side-effecting function of a mutation definition and can
// refuse or abandon a call. Guards never repeat a call: a mutation runs its
// collaborator at most once per start, and a refused call fails like any
// other collaborator error.
//
// # Guards
//
//   - Bulkhead: caps the number of in-flight calls, optionally waiting a
//     bounded time for a free slot.
//
//   - CircuitBreaker: stops calling a collaborator after consecutive failures
//     and lets a probe through once the reset timeout has passed.
//
//   - Timeout: abandons a call that runs too long. The abandoned call keeps
//     running with a cancelled context; its result is dropped.
//
// # Usage
//
// Guards compose through an Executor, which satisfies mutation.Executor:
//
//	guard := resilience.NewExecutor(
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 4})),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        MaxFailures:  5,
//	        ResetTimeout: 30 * time.Second,
//	    })),
//	    resilience.WithTimeout(5*time.Second),
//	)
//
//	deleteContact := &mutation.Definition[struct{}, int, mutation.NoContext]{
//	    Name:  "deleteContact",
//	    Fn:    del,
//	    Guard: guard,
//	}
package resilience
