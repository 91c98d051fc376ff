// Package netmon provides the connectivity signal consumed by the task
// queue for offline-aware scheduling.
//
// The queue itself knows nothing about how connectivity is detected: it is
// handed a Signal at construction and reacts to its online/offline events by
// resuming or pausing dispatch. This package supplies two implementations:
//
//   - Monitor probes one or more HTTP endpoints on an interval and reports
//     online while any of them answers.
//
//   - Static is a hand-driven signal for tests and for applications that
//     already have their own connectivity source.
package netmon
