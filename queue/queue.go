package queue

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/toposort"
	"github.com/google/uuid"

	"github.com/relayq/relayq/netmon"
	"github.com/relayq/relayq/observe"
	"github.com/relayq/relayq/resilience"
	"github.com/relayq/relayq/storage"
)

// persistTimeout bounds each best-effort snapshot write.
const persistTimeout = 10 * time.Second

// Config configures a Queue.
type Config struct {
	// Concurrency is the maximum number of task bodies running at once.
	// Default: 4
	Concurrency int

	// Name labels the queue in logs, metrics, and the persistence key.
	// Default: "default"
	Name string

	// Logger receives scheduling logs. Default: no-op.
	Logger observe.Logger

	// Metrics records task execution metrics. Default: no-op.
	Metrics observe.Metrics

	// Storage enables snapshot persistence when set. Snapshots are
	// written best-effort after every state change.
	Storage storage.Adapter

	// PersistKey is the storage key for snapshots.
	// Default: "relayq:" + Name
	PersistKey string

	// Rehydrate maps a restored task id back to its body. Restored tasks
	// for which it returns nil are skipped with ErrOrphanedTask.
	Rehydrate func(id string) Body

	// Signal pauses the queue while the network is offline. The queue
	// only ever calls Pause and Resume in response to it.
	Signal netmon.Signal

	// EventBuffer is the default subscriber buffer size for Events().
	// Default: 256
	EventBuffer int
}

// Queue is a priority- and dependency-aware task scheduler. All scheduling
// bookkeeping happens under one mutex; task bodies run concurrently up to
// the configured cap.
type Queue struct {
	config Config
	bus    *Bus

	mu         sync.Mutex
	tasks      map[string]*task     // non-terminal tasks by id
	done       map[string]TaskState // terminal states, for dependency resolution
	dependents map[string][]string  // dependency id -> dependent task ids
	ready      readyHeap
	seq        uint64
	running    int
	paused     bool
	closed     bool
	wasEmpty   bool
	emptyCh    chan struct{}

	saveSeq  atomic.Uint64
	saveMu   sync.Mutex
	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a queue. With Config.Storage set, a previously saved snapshot
// is loaded and its non-terminal tasks are reconstructed before the first
// dispatch; snapshot load failures are logged and do not fail construction.
func New(config Config) (*Queue, error) {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.Name == "" {
		config.Name = "default"
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopMetrics()
	}
	if config.PersistKey == "" {
		config.PersistKey = "relayq:" + config.Name
	}
	if config.Storage != nil {
		if err := storage.ValidateKey(config.PersistKey); err != nil {
			return nil, err
		}
	}

	q := &Queue{
		config:     config,
		bus:        NewBus(),
		tasks:      make(map[string]*task),
		done:       make(map[string]TaskState),
		dependents: make(map[string][]string),
		wasEmpty:   true,
		emptyCh:    closedChan(),
		stop:       make(chan struct{}),
	}

	if config.Signal != nil && config.Signal.Status() == netmon.StatusOffline {
		q.paused = true
	}

	if config.Storage != nil {
		q.restore()
	}

	if config.Signal != nil {
		go q.watchSignal()
	}

	q.mu.Lock()
	q.dispatchLocked()
	q.mu.Unlock()

	return q, nil
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Add submits a task. The returned handle resolves with the task's terminal
// outcome. Dependencies may reference tasks that have not been added yet;
// such tasks wait until a task with that id succeeds.
func (q *Queue) Add(body Body, opts AddOptions) (*Handle, error) {
	if body == nil {
		return nil, errors.New("queue: nil task body")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := q.tasks[id]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	for _, dep := range opts.Dependencies {
		if dep == id {
			return nil, fmt.Errorf("%w: %q depends on itself", ErrDependencyCycle, id)
		}
	}
	if err := q.checkCycleLocked(id, opts.Dependencies); err != nil {
		return nil, err
	}

	q.seq++
	t := newTask(id, q.seq, opts, body)
	q.tasks[id] = t
	for _, dep := range opts.Dependencies {
		if q.done[dep] != StateSucceeded {
			q.dependents[dep] = append(q.dependents[dep], id)
		}
	}
	q.markBusyLocked()

	q.config.Logger.Debug(context.Background(), "task added",
		observe.Field{Key: "queue", Value: q.config.Name},
		observe.Field{Key: "task", Value: id},
		observe.Field{Key: "priority", Value: opts.Priority})

	if failedDep := q.failedDepLocked(t); failedDep != "" {
		q.skipLocked(t, &DependencyError{TaskID: id, DependencyID: failedDep})
	} else if q.blockedLocked(t) {
		t.setState(StateWaiting)
	} else {
		t.setState(StateReady)
		heap.Push(&q.ready, t)
	}

	q.dispatchLocked()
	q.checkEmptyLocked()
	q.persistLocked()

	return &Handle{t: t}, nil
}

// Pause stops dispatching. Tasks already running are not interrupted.
// Pausing an already paused queue is a no-op.
func (q *Queue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.paused {
		return
	}
	q.paused = true
	q.bus.Publish(Event{Type: EventQueuePaused})
	q.config.Logger.Info(context.Background(), "queue paused",
		observe.Field{Key: "queue", Value: q.config.Name})
}

// Resume restarts dispatching. Resuming a running queue is a no-op.
func (q *Queue) Resume() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.paused {
		return
	}
	q.paused = false
	q.bus.Publish(Event{Type: EventQueueResumed})
	q.config.Logger.Info(context.Background(), "queue resumed",
		observe.Field{Key: "queue", Value: q.config.Name})
	q.dispatchLocked()
}

// Paused reports whether dispatching is stopped.
func (q *Queue) Paused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.paused
}

// Clear skips every task that is not currently running and rejects its
// waiters with ErrTaskSkipped. Running tasks complete naturally.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]string, 0, len(q.tasks))
	for id := range q.tasks {
		ids = append(ids, id)
	}
	for _, id := range ids {
		t, ok := q.tasks[id]
		if !ok || t.getState() == StateRunning {
			continue
		}
		q.skipLocked(t, ErrTaskSkipped)
	}
	q.ready = q.ready[:0]

	q.checkEmptyLocked()
	q.persistLocked()
}

// Len returns the number of non-terminal tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// WaitUntilEmpty blocks until no non-terminal tasks remain, returning
// immediately if the queue is already empty.
func (q *Queue) WaitUntilEmpty(ctx context.Context) error {
	q.mu.Lock()
	ch := q.emptyCh
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// Events returns a channel receiving every queue event.
func (q *Queue) Events() <-chan Event {
	return q.bus.SubscribeAll(q.config.EventBuffer)
}

// Subscribe returns a channel receiving events of one type.
func (q *Queue) Subscribe(t EventType) <-chan Event {
	return q.bus.Subscribe(t, q.config.EventBuffer)
}

// Close stops the connectivity watcher and closes all event subscriptions.
// It does not wait for running tasks; their handles still resolve.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.stopOnce.Do(func() { close(q.stop) })
	q.bus.Close()
}

// watchSignal pauses and resumes the queue on connectivity transitions.
// This is the queue's only coupling to environment state.
func (q *Queue) watchSignal() {
	for {
		select {
		case <-q.stop:
			return
		case status, ok := <-q.config.Signal.Events():
			if !ok {
				return
			}
			if status == netmon.StatusOffline {
				q.Pause()
			} else {
				q.Resume()
			}
		}
	}
}

// dispatchLocked admits ready tasks while slots allow. The queue mutex must
// be held.
func (q *Queue) dispatchLocked() {
	for !q.paused && q.running < q.config.Concurrency && q.ready.Len() > 0 {
		t := heap.Pop(&q.ready).(*task)
		if t.getState() != StateReady {
			// Stale heap entry for a task skipped while queued.
			continue
		}
		t.setState(StateRunning)
		q.running++
		q.bus.Publish(Event{Type: EventTaskStarted, TaskID: t.id})
		go q.execute(t)
	}
}

// execute runs one task body outside the queue lock, guarded by the task's
// timeout and resilience policies.
func (q *Queue) execute(t *task) {
	start := time.Now()

	var resMu sync.Mutex
	var result any
	var resolved bool

	op := func(ctx context.Context) error {
		attempt := int(t.attempts.Add(1))
		if attempt > 1 {
			q.bus.Publish(Event{Type: EventTaskRetrying, TaskID: t.id, Attempt: attempt})
		}

		res, err := t.body(ctx)
		if err != nil {
			return err
		}

		// A timed-out attempt may still be running when its retry
		// succeeds; the first result to land wins.
		resMu.Lock()
		if !resolved {
			resolved = true
			result = res
		}
		resMu.Unlock()
		return nil
	}

	if t.timeout > 0 {
		inner := op
		timeout := t.timeout
		op = func(ctx context.Context) error {
			return resilience.ExecuteWithTimeout(ctx, timeout, inner)
		}
	}

	var err error
	if t.policies != nil {
		err = t.policies.Execute(context.Background(), op)
	} else {
		err = op(context.Background())
	}

	resMu.Lock()
	res := result
	resMu.Unlock()

	q.complete(t, res, err)

	meta := observe.TaskMeta{
		Queue:    q.config.Name,
		TaskID:   t.id,
		Priority: t.priority,
		Attempt:  int(t.attempts.Load()),
	}
	q.config.Metrics.RecordTask(context.Background(), meta, time.Since(start), err)
}

// complete commits a task's terminal state and admits newly eligible work.
func (q *Queue) complete(t *task, result any, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.running--
	delete(q.tasks, t.id)

	ctx := context.Background()
	if err != nil {
		q.done[t.id] = StateFailed
		t.finish(StateFailed, nil, err)
		q.bus.Publish(Event{Type: EventTaskFailed, TaskID: t.id, Attempt: int(t.attempts.Load()), Err: err})
		q.config.Logger.Warn(ctx, "task failed",
			observe.Field{Key: "queue", Value: q.config.Name},
			observe.Field{Key: "task", Value: t.id},
			observe.Field{Key: "attempts", Value: t.attempts.Load()},
			observe.Field{Key: "error", Value: err.Error()})
		q.cascadeLocked(t.id)
	} else {
		q.done[t.id] = StateSucceeded
		t.finish(StateSucceeded, result, nil)
		q.bus.Publish(Event{Type: EventTaskCompleted, TaskID: t.id, Attempt: int(t.attempts.Load())})
		q.config.Logger.Debug(ctx, "task completed",
			observe.Field{Key: "queue", Value: q.config.Name},
			observe.Field{Key: "task", Value: t.id})
		q.promoteLocked(t.id)
	}

	q.dispatchLocked()
	q.checkEmptyLocked()
	q.persistLocked()
}

// promoteLocked moves dependents of a succeeded task to ready once all
// their dependencies are satisfied.
func (q *Queue) promoteLocked(id string) {
	deps := q.dependents[id]
	delete(q.dependents, id)

	for _, did := range deps {
		t, ok := q.tasks[did]
		if !ok || t.getState() != StateWaiting {
			continue
		}
		if q.blockedLocked(t) {
			continue
		}
		t.setState(StateReady)
		heap.Push(&q.ready, t)
	}
}

// cascadeLocked skips every dependent of a task that failed or was skipped,
// transitively.
func (q *Queue) cascadeLocked(id string) {
	deps := q.dependents[id]
	delete(q.dependents, id)

	for _, did := range deps {
		t, ok := q.tasks[did]
		if !ok || t.getState().Terminal() || t.getState() == StateRunning {
			continue
		}
		q.skipLocked(t, &DependencyError{TaskID: did, DependencyID: id})
	}
}

// skipLocked commits a skip: the task becomes terminal without running and
// its waiters are rejected.
func (q *Queue) skipLocked(t *task, err error) {
	if t.getState().Terminal() {
		return
	}

	delete(q.tasks, t.id)
	q.done[t.id] = StateSkipped
	t.finish(StateSkipped, nil, err)
	q.bus.Publish(Event{Type: EventTaskSkipped, TaskID: t.id, Err: err})
	q.cascadeLocked(t.id)
}

// blockedLocked reports whether any dependency is still unresolved. Unknown
// dependency ids count as unresolved forward references.
func (q *Queue) blockedLocked(t *task) bool {
	for _, dep := range t.deps {
		if q.done[dep] != StateSucceeded {
			return true
		}
	}
	return false
}

// failedDepLocked returns the id of a dependency that already failed or was
// skipped, or "" when none has.
func (q *Queue) failedDepLocked(t *task) string {
	for _, dep := range t.deps {
		if st, ok := q.done[dep]; ok && st != StateSucceeded {
			// A reused id may be active again; the terminal record
			// is stale in that case.
			if _, active := q.tasks[dep]; !active {
				return dep
			}
		}
	}
	return ""
}

// checkCycleLocked rejects a submission that would close a dependency
// cycle, considering forward references among non-terminal tasks.
func (q *Queue) checkCycleLocked(id string, deps []string) error {
	if len(deps) == 0 {
		return nil
	}

	var edges []toposort.Edge
	for _, dep := range deps {
		if q.done[dep] != StateSucceeded {
			edges = append(edges, toposort.Edge{dep, id})
		}
	}
	if len(edges) == 0 {
		return nil
	}
	for tid, t := range q.tasks {
		for _, dep := range t.deps {
			if q.done[dep] != StateSucceeded {
				edges = append(edges, toposort.Edge{dep, tid})
			}
		}
	}

	if _, err := toposort.Toposort(edges); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrDependencyCycle, id, err)
	}
	return nil
}

// markBusyLocked records the empty-to-busy transition.
func (q *Queue) markBusyLocked() {
	if q.wasEmpty {
		q.wasEmpty = false
		q.emptyCh = make(chan struct{})
	}
}

// checkEmptyLocked emits queue:empty exactly once per transition into the
// empty condition and releases WaitUntilEmpty callers.
func (q *Queue) checkEmptyLocked() {
	q.config.Metrics.RecordDepth(context.Background(), q.config.Name, len(q.tasks))
	if len(q.tasks) == 0 && !q.wasEmpty {
		q.wasEmpty = true
		close(q.emptyCh)
		q.bus.Publish(Event{Type: EventQueueEmpty})
	}
}

// persistLocked schedules a best-effort snapshot write. The write happens
// off the scheduler lock; a snapshot superseded before its turn is dropped.
func (q *Queue) persistLocked() {
	if q.config.Storage == nil {
		return
	}

	snap := q.snapshotLocked()
	v := q.saveSeq.Add(1)
	go q.save(v, snap)
}

func (q *Queue) save(v uint64, snap Snapshot) {
	q.saveMu.Lock()
	defer q.saveMu.Unlock()

	if v != q.saveSeq.Load() {
		// A newer snapshot is already queued.
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	var err error
	if len(snap.Tasks) == 0 {
		err = q.config.Storage.Remove(ctx, q.config.PersistKey)
	} else {
		var data []byte
		data, err = encodeSnapshot(snap)
		if err == nil {
			err = q.config.Storage.Save(ctx, q.config.PersistKey, data)
		}
	}
	if err != nil {
		q.bus.Publish(Event{Type: EventPersistError, Err: err})
		q.config.Logger.Warn(ctx, "snapshot persist failed",
			observe.Field{Key: "queue", Value: q.config.Name},
			observe.Field{Key: "error", Value: err.Error()})
	}
}

// restore reconstructs non-terminal tasks from a saved snapshot. Bodies are
// re-attached via Config.Rehydrate; tasks without one are skipped with
// ErrOrphanedTask. Dependencies absent from the snapshot are treated as
// having succeeded before the save, since a failed dependency would have
// skipped its dependents out of the snapshot.
func (q *Queue) restore() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	data, ok, err := q.config.Storage.Load(ctx, q.config.PersistKey)
	if err != nil {
		q.config.Logger.Warn(ctx, "snapshot load failed",
			observe.Field{Key: "queue", Value: q.config.Name},
			observe.Field{Key: "error", Value: err.Error()})
		return
	}
	if !ok {
		return
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		q.config.Logger.Warn(ctx, "snapshot decode failed",
			observe.Field{Key: "queue", Value: q.config.Name},
			observe.Field{Key: "error", Value: err.Error()})
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	restored := make(map[string]bool, len(snap.Tasks))
	for _, rec := range snap.Tasks {
		restored[rec.ID] = true
	}

	for _, rec := range snap.Tasks {
		var body Body
		if q.config.Rehydrate != nil {
			body = q.config.Rehydrate(rec.ID)
		}

		q.seq++
		t := newTask(rec.ID, q.seq, AddOptions{
			Priority:     rec.Priority,
			Dependencies: rec.Dependencies,
		}, body)
		t.attempts.Store(int32(rec.Attempts))
		q.tasks[rec.ID] = t

		for _, dep := range rec.Dependencies {
			if !restored[dep] && q.done[dep] != StateSucceeded {
				q.done[dep] = StateSucceeded
			}
			if _, active := q.tasks[dep]; active || restored[dep] {
				q.dependents[dep] = append(q.dependents[dep], rec.ID)
			}
		}
		q.markBusyLocked()
	}

	// Resolve states in submission order so orphan skips cascade to
	// their dependents within the restored set.
	for _, rec := range snap.Tasks {
		t, ok := q.tasks[rec.ID]
		if !ok || t.getState().Terminal() {
			continue
		}
		if t.body == nil {
			q.skipLocked(t, fmt.Errorf("%w: %q", ErrOrphanedTask, t.id))
			continue
		}
		if q.blockedLocked(t) {
			t.setState(StateWaiting)
		} else {
			t.setState(StateReady)
			heap.Push(&q.ready, t)
		}
	}

	q.config.Logger.Info(ctx, "queue restored from snapshot",
		observe.Field{Key: "queue", Value: q.config.Name},
		observe.Field{Key: "tasks", Value: len(snap.Tasks)})

	q.checkEmptyLocked()
	q.persistLocked()
}
