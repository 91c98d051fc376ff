// Package storage provides the snapshot storage adapter used by the task
// queue for persistence and recovery.
//
// The queue serializes its non-terminal state as an opaque byte payload and
// hands it to an Adapter under a caller-chosen key. Two implementations are
// provided: Memory for tests and ephemeral queues, and SQLite for durable
// snapshots that survive process restarts. Any other backend (a remote KV
// store, a file, a browser storage bridge) can plug in by implementing the
// three-method Adapter interface.
package storage
