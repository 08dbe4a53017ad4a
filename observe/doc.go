// Package observe provides observability primitives for mutation execution.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. The mutation cache wires a Middleware around every
// collaborator call and a Logger for lifecycle diagnostics.
package observe
