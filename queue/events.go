package queue

import (
	"sync"
	"time"
)

// EventType identifies a queue or task lifecycle event.
type EventType string

const (
	// EventTaskStarted fires when a task enters the running state.
	EventTaskStarted EventType = "task:started"
	// EventTaskCompleted fires when a task succeeds.
	EventTaskCompleted EventType = "task:completed"
	// EventTaskFailed fires when a task fails terminally.
	EventTaskFailed EventType = "task:failed"
	// EventTaskRetrying fires before each re-execution of a task body.
	EventTaskRetrying EventType = "task:retrying"
	// EventTaskSkipped fires when a task is skipped by Clear or by a
	// failed dependency.
	EventTaskSkipped EventType = "task:skipped"
	// EventQueueEmpty fires when the last non-terminal task finishes.
	EventQueueEmpty EventType = "queue:empty"
	// EventQueuePaused fires when dispatch stops.
	EventQueuePaused EventType = "queue:paused"
	// EventQueueResumed fires when dispatch restarts.
	EventQueueResumed EventType = "queue:resumed"
	// EventPersistError fires when a best-effort snapshot write fails.
	EventPersistError EventType = "queue:persist-error"
)

// Event is one observation of queue activity. TaskID is empty for
// queue-level events.
type Event struct {
	Type    EventType
	TaskID  string
	Attempt int
	Err     error
	Time    time.Time
}

// Bus is a channel-based pub-sub stream of queue events. Publishing never
// blocks: a subscriber that stops draining its channel loses events instead
// of stalling the scheduler.
type Bus struct {
	mu     sync.RWMutex
	subs   map[EventType][]chan Event
	all    []chan Event
	closed bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[EventType][]chan Event),
	}
}

// Subscribe returns a channel receiving events of one type. bufSize
// defaults to 256 when not positive.
func (b *Bus) Subscribe(t EventType, bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = 256
	}
	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}
	b.subs[t] = append(b.subs[t], ch)
	return ch
}

// SubscribeAll returns a channel receiving every event.
func (b *Bus) SubscribeAll(bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = 256
	}
	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}
	b.all = append(b.all, ch)
	return ch
}

// Publish delivers the event to matching subscribers without blocking.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs[e.Type] {
		select {
		case ch <- e:
		default:
		}
	}
	for _, ch := range b.all {
		select {
		case ch <- e:
		default:
		}
	}
}

// Close closes all subscriber channels. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, chans := range b.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	for _, ch := range b.all {
		close(ch)
	}
	b.subs = nil
	b.all = nil
}
