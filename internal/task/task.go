// Package task holds named units of work and the dependency graph between them.
//
// A Registry is constructed explicitly and handed to the sequencer; there is no
// process-wide task table.
package task

import (
	"context"
	"time"
)

// Func is the work performed by a task. It returns nil on success.
type Func func(ctx context.Context) error

// Task is a named, schedulable unit of work.
type Task struct {
	// Name uniquely identifies the task within a registry.
	Name string
	// Description is shown by `assetbuilder list`.
	Description string
	// Deps must finish before this task starts. Planning a task pulls its Deps in.
	Deps []string
	// After orders this task behind the named tasks only when they are part of the
	// same plan. After never pulls a task into a plan.
	After []string
	// Run performs the work.
	Run Func
	// Timeout bounds a single execution. Zero means the runner default.
	Timeout time.Duration
}

// Edges returns Deps followed by After.
func (t Task) Edges() []string {
	out := make([]string, 0, len(t.Deps)+len(t.After))
	out = append(out, t.Deps...)
	return append(out, t.After...)
}
