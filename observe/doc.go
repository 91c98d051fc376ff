// Package observe provides observability primitives for task scheduling:
// structured logging, OpenTelemetry tracing and metrics, and a middleware
// for instrumenting task bodies.
//
// It is a pure instrumentation library: no scheduling, no transport, no I/O
// beyond exporter setup. Consumers wire the observer into a queue or wrap
// task bodies with the middleware.
package observe
