package queue

import (
	"errors"
	"testing"
	"time"
)

// TestBus_SubscribeByType verifies type filtering.
func TestBus_SubscribeByType(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	started := bus.Subscribe(EventTaskStarted, 4)

	bus.Publish(Event{Type: EventTaskStarted, TaskID: "a"})
	bus.Publish(Event{Type: EventTaskCompleted, TaskID: "a"})
	bus.Publish(Event{Type: EventTaskStarted, TaskID: "b"})

	for _, want := range []string{"a", "b"} {
		select {
		case e := <-started:
			if e.Type != EventTaskStarted {
				t.Errorf("event type = %s, want %s", e.Type, EventTaskStarted)
			}
			if e.TaskID != want {
				t.Errorf("event task = %s, want %s", e.TaskID, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}

	select {
	case e := <-started:
		t.Errorf("unexpected extra event: %+v", e)
	default:
	}
}

// TestBus_SubscribeAll verifies the firehose subscription.
func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	all := bus.SubscribeAll(4)

	bus.Publish(Event{Type: EventTaskStarted, TaskID: "a"})
	bus.Publish(Event{Type: EventQueuePaused})

	types := make([]EventType, 0, 2)
	for i := 0; i < 2; i++ {
		select {
		case e := <-all:
			types = append(types, e.Type)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}

	if types[0] != EventTaskStarted || types[1] != EventQueuePaused {
		t.Errorf("event types = %v, want [%s %s]", types, EventTaskStarted, EventQueuePaused)
	}
}

// TestBus_DropOnFullBuffer verifies publishing never blocks.
func TestBus_DropOnFullBuffer(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch := bus.Subscribe(EventTaskStarted, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			bus.Publish(Event{Type: EventTaskStarted})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}

	// Exactly the buffered event survives.
	if len(ch) != 1 {
		t.Errorf("buffered events = %d, want 1", len(ch))
	}
}

// TestBus_Close verifies subscriber channels close and publish becomes a
// no-op.
func TestBus_Close(t *testing.T) {
	bus := NewBus()

	ch := bus.Subscribe(EventTaskStarted, 1)
	all := bus.SubscribeAll(1)

	bus.Close()
	bus.Close() // idempotent

	if _, ok := <-ch; ok {
		t.Error("typed channel still open after Close")
	}
	if _, ok := <-all; ok {
		t.Error("all channel still open after Close")
	}

	// Must not panic.
	bus.Publish(Event{Type: EventTaskStarted})

	// Subscriptions after Close come back closed.
	late := bus.Subscribe(EventTaskStarted, 1)
	if _, ok := <-late; ok {
		t.Error("post-Close subscription channel is open")
	}
}

// TestBus_PublishSetsTime verifies a zero timestamp is filled in.
func TestBus_PublishSetsTime(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch := bus.Subscribe(EventTaskFailed, 1)
	bus.Publish(Event{Type: EventTaskFailed, Err: errors.New("boom")})

	select {
	case e := <-ch:
		if e.Time.IsZero() {
			t.Error("event time is zero")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}
