// Package inspect is a diagnostic port for a mutation cache.
//
// An [Inspector] subscribes to the cache's lifecycle events, keeps per-entry
// activity counters and a bounded history of recent events, and answers two
// queries for display: [Inspector.ListEntries] and [Inspector.DescribeEntry].
// The cache does not depend on this package; attaching an inspector is
// optional and detaching it with Close leaves the cache untouched.
//
// # HTTP
//
// [Handler] exposes the queries as JSON:
//
//	GET /entries        every entry with invocation counts and activity
//	GET /entries/{id}   one entry with its invocations
//	GET /events         recent events, oldest first (?limit=N)
//	GET /healthz        liveness
package inspect
