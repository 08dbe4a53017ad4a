// Package health reports whether a process driving mutations can do useful
// work.
//
// A Checker returns a Result whose Status is healthy, degraded or unhealthy.
// The checks in this package watch the collaborator guards (Circuit, Bulkhead),
// the mutation cache (InFlight) and the collaborator itself (Ping). An
// Aggregator runs named checks concurrently under one deadline and folds them
// into an overall status:
//
//	agg := health.NewAggregator()
//	agg.Register("circuit", health.Circuit(breaker))
//	agg.Register("in-flight", health.InFlight(cache, 100))
//	health.RegisterHandlers(mux, agg) // GET /readyz, GET /health
//
// Degraded counts as ready; only unhealthy checks fail /readyz.
package health
