package queue

import (
	"container/heap"
	"context"
	"sync/atomic"
	"time"

	"github.com/relayq/relayq/resilience"
)

// Body is the deferred operation a task executes. It must respect ctx for
// timeouts to interrupt it; the scheduler never force-kills a running body.
type Body func(ctx context.Context) (any, error)

// TaskState is the lifecycle state of a task.
type TaskState int

const (
	// StatePending means the task was accepted but not yet evaluated.
	StatePending TaskState = iota
	// StateWaiting means the task is blocked on unfinished dependencies.
	StateWaiting
	// StateReady means all dependencies succeeded and the task is waiting
	// for a concurrency slot.
	StateReady
	// StateRunning means the task body is executing.
	StateRunning
	// StateSucceeded is terminal: the body returned a result.
	StateSucceeded
	// StateFailed is terminal: the body failed after all local recovery.
	StateFailed
	// StateSkipped is terminal: the task never ran because it was cleared
	// or a dependency did not succeed.
	StateSkipped
)

// String returns the string representation of the state.
func (s TaskState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateWaiting:
		return "waiting"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is one of the three terminal states.
func (s TaskState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// AddOptions configures a task at submission.
type AddOptions struct {
	// ID identifies the task. Generated when empty.
	ID string

	// Priority orders dispatch; higher runs first. Ties run in
	// submission order.
	Priority int

	// Dependencies lists task ids that must succeed before this task
	// becomes eligible.
	Dependencies []string

	// Timeout bounds each execution attempt of the body. Zero means no
	// limit.
	Timeout time.Duration

	// Policies optionally guards the body with resilience patterns. The
	// executor is applied around the whole body, so a retry policy inside
	// it re-runs attempts without the task leaving the running state.
	Policies *resilience.Executor
}

// task is the scheduler-internal task representation. All fields except the
// atomics are guarded by the queue mutex.
type task struct {
	id       string
	priority int
	seq      uint64
	deps     []string
	timeout  time.Duration
	policies *resilience.Executor
	body     Body

	state    atomic.Int32
	attempts atomic.Int32

	// result and err are written before done is closed and only read
	// after it is closed.
	result any
	err    error
	done   chan struct{}
}

func newTask(id string, seq uint64, opts AddOptions, body Body) *task {
	return &task{
		id:       id,
		priority: opts.Priority,
		seq:      seq,
		deps:     append([]string(nil), opts.Dependencies...),
		timeout:  opts.Timeout,
		policies: opts.Policies,
		body:     body,
		done:     make(chan struct{}),
	}
}

func (t *task) getState() TaskState {
	return TaskState(t.state.Load())
}

func (t *task) setState(s TaskState) {
	t.state.Store(int32(s))
}

// finish commits a terminal state. The queue mutex must be held.
func (t *task) finish(s TaskState, result any, err error) {
	t.result = result
	t.err = err
	t.setState(s)
	close(t.done)
}

// Handle is the caller's view of a submitted task: a promise that resolves
// with the task's terminal outcome.
type Handle struct {
	t *task
}

// ID returns the task id.
func (h *Handle) ID() string {
	return h.t.id
}

// State returns the task's current lifecycle state.
func (h *Handle) State() TaskState {
	return h.t.getState()
}

// Attempts returns the number of body invocations so far.
func (h *Handle) Attempts() int {
	return int(h.t.attempts.Load())
}

// Done returns a channel closed when the task reaches a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.t.done
}

// Wait blocks until the task reaches a terminal state or ctx is cancelled,
// returning the task's result and terminal error.
func (h *Handle) Wait(ctx context.Context) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.t.done:
		return h.t.result, h.t.err
	}
}

// readyHeap orders ready tasks by priority (higher first), breaking ties by
// submission order (lower seq first).
type readyHeap []*task

func (h readyHeap) Len() int { return len(h) }

func (h readyHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h readyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *readyHeap) Push(x any) {
	*h = append(*h, x.(*task))
}

func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

var _ heap.Interface = (*readyHeap)(nil)
