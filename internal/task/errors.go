package task

import (
	"errors"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

var (
	// ErrUnknownTask is returned when a task name is not registered.
	ErrUnknownTask = errors.New("unknown task")
	// ErrDuplicateTask is returned when a task name is registered twice.
	ErrDuplicateTask = errors.New("duplicate task")
)

func unknownTask(name, referrer string) error {
	b := ferrors.GraphError("unknown task "+quote(name)).
		WithCause(ErrUnknownTask).
		WithContext("task", name)
	if referrer != "" {
		b = b.WithContext("referrer", referrer)
	}
	return b.Build()
}

func duplicateTask(name string) error {
	return ferrors.GraphError("task " + quote(name) + " registered twice").
		WithCause(ErrDuplicateTask).
		WithContext("task", name).
		Build()
}

func quote(s string) string { return `"` + s + `"` }
