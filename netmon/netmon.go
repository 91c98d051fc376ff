package netmon

import "sync"

// Status represents network reachability.
type Status int

const (
	// StatusOnline means the network is reachable.
	StatusOnline Status = iota
	// StatusOffline means the network is unreachable.
	StatusOffline
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Signal is the contract between a connectivity source and the task queue.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Events delivers a value on every status transition, never on repeats.
// - Close releases resources and closes the events channel.
type Signal interface {
	// Status returns the last known status.
	Status() Status

	// Events returns the transition stream.
	Events() <-chan Status

	// Close stops the signal and closes the events channel.
	Close()
}

// Static is a Signal driven by explicit Set calls. It exists for tests and
// for applications that derive connectivity from their own sources.
type Static struct {
	mu     sync.Mutex
	status Status
	events chan Status
	closed bool
}

// NewStatic creates a static signal with the given initial status.
func NewStatic(initial Status) *Static {
	return &Static{
		status: initial,
		events: make(chan Status, 16),
	}
}

// Status returns the current status.
func (s *Static) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Events returns the transition stream.
func (s *Static) Events() <-chan Status {
	return s.events
}

// Set updates the status, emitting an event when it changes. Repeated calls
// with the same status emit nothing.
func (s *Static) Set(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.status == status {
		return
	}
	s.status = status

	select {
	case s.events <- status:
	default:
		// A consumer that stopped draining must not block producers.
	}
}

// SetOnline is shorthand for Set with a boolean.
func (s *Static) SetOnline(online bool) {
	if online {
		s.Set(StatusOnline)
	} else {
		s.Set(StatusOffline)
	}
}

// Close stops the signal.
func (s *Static) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// Ensure Static implements Signal
var _ Signal = (*Static)(nil)
