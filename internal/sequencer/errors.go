package sequencer

import (
	"errors"
	"fmt"
	"time"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

var (
	// ErrCyclicDependency is returned by Plan when the reachable graph has a cycle.
	ErrCyclicDependency = task.ErrCyclicDependency
	// ErrTaskTimeout marks a task that exceeded its timeout.
	ErrTaskTimeout = errors.New("task timeout")
)

func taskFailed(name string, err error) error {
	if ferrors.HasCategory(err, ferrors.CategoryTimeout) {
		return err
	}
	return ferrors.TaskError(fmt.Sprintf("task %q failed", name)).
		WithCause(err).
		WithContext("task", name).
		Build()
}

func taskTimedOut(name string, after time.Duration) error {
	return ferrors.TimeoutError(fmt.Sprintf("task %q timed out after %s", name, after)).
		WithCause(ErrTaskTimeout).
		WithContext("task", name).
		Build()
}

func taskPanicked(name string, v any) error {
	return ferrors.InternalError(fmt.Sprintf("task %q panicked: %v", name, v)).
		WithContext("task", name).
		Build()
}
