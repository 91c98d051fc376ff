package queue

import (
	"errors"
	"fmt"
)

// Sentinel errors for queue operations.
var (
	// ErrDuplicateID is returned by Add when the id collides with a
	// non-terminal task.
	ErrDuplicateID = errors.New("queue: duplicate task id")

	// ErrDependencyCycle is returned by Add when the submitted task would
	// close a dependency cycle.
	ErrDependencyCycle = errors.New("queue: dependency cycle")

	// ErrTaskSkipped is the terminal error of a task that was cleared or
	// cascaded out before running.
	ErrTaskSkipped = errors.New("queue: task skipped")

	// ErrOrphanedTask is the terminal error of a persisted task restored
	// without a rehydrated body.
	ErrOrphanedTask = errors.New("queue: orphaned task has no body")

	// ErrQueueClosed is returned by Add after Close.
	ErrQueueClosed = errors.New("queue: queue is closed")
)

// DependencyError is the terminal error of a task skipped because one of
// its dependencies failed or was skipped.
type DependencyError struct {
	// TaskID is the skipped task.
	TaskID string

	// DependencyID is the dependency whose failure caused the skip.
	DependencyID string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("queue: task %q skipped: dependency %q did not succeed", e.TaskID, e.DependencyID)
}

// Unwrap lets errors.Is match DependencyError against ErrTaskSkipped.
func (e *DependencyError) Unwrap() error {
	return ErrTaskSkipped
}
