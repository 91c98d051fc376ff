// Package queue provides a priority- and dependency-aware task scheduler
// with bounded concurrency, pause/resume, offline awareness, and optional
// snapshot persistence.
//
// Callers submit a task body (a deferred operation, typically a network
// request) together with a priority, optional dependencies on other tasks,
// and an optional per-attempt timeout. The scheduler admits the
// highest-priority eligible task whenever a concurrency slot frees up,
// breaking priority ties in submission order. A task never starts before
// every dependency has succeeded; when a dependency fails or is skipped, its
// dependents are skipped transitively.
//
// Task bodies can be guarded per task by the patterns in the resilience
// package (rate limiter, circuit breaker, retry, timeout), so a flaky
// downstream is retried and circuit-broken without the scheduler knowing.
//
// # Usage
//
//	q, err := queue.New(queue.Config{Concurrency: 4})
//	if err != nil {
//	    return err
//	}
//	defer q.Close()
//
//	fetch, err := q.Add(func(ctx context.Context) (any, error) {
//	    return client.FetchUser(ctx, userID)
//	}, queue.AddOptions{Priority: 10})
//	if err != nil {
//	    return err
//	}
//
//	user, err := fetch.Wait(ctx)
//
// Events observe scheduling without participating in it: subscribers receive
// task lifecycle and queue state events on buffered channels, and a slow
// subscriber loses events rather than stalling dispatch.
//
// With a storage adapter configured, the queue writes a snapshot of its
// non-terminal tasks after every state change and reconstructs them on
// construction. Bodies are not serializable, so the caller supplies a
// rehydration callback that maps task ids back to bodies; restored tasks
// without a body are skipped with ErrOrphanedTask.
package queue
