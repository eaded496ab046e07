package sequencer

import (
	"time"
)

// Status is the outcome of a single task within a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
	StatusNotRun    Status = "not_run"
)

// TaskResult describes what happened to one planned task.
type TaskResult struct {
	Name     string
	Stage    int
	Status   Status
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Completed reports whether the task ran to an end (successfully or not).
func (r TaskResult) Completed() bool {
	return r.Status == StatusSucceeded || r.Status == StatusFailed || r.Status == StatusTimedOut
}

// RunResult is the outcome of Run.
type RunResult struct {
	ID        string
	Goals     []string
	Tasks     []TaskResult
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// Succeeded reports whether every planned task succeeded.
func (r *RunResult) Succeeded() bool { return r != nil && r.Err == nil }

// Result looks up the result for name.
func (r *RunResult) Result(name string) (TaskResult, bool) {
	if r == nil {
		return TaskResult{}, false
	}
	for _, tr := range r.Tasks {
		if tr.Name == name {
			return tr, true
		}
	}
	return TaskResult{}, false
}

// Failed returns the names of failed or timed out tasks.
func (r *RunResult) Failed() []string {
	var out []string
	for _, tr := range r.Tasks {
		if tr.Status == StatusFailed || tr.Status == StatusTimedOut {
			out = append(out, tr.Name)
		}
	}
	return out
}

// Outcome returns the metrics outcome label for the run.
func (r *RunResult) Outcome() string {
	switch {
	case r.Err == nil:
		return "success"
	case isCanceled(r.Err):
		return "canceled"
	default:
		return "failed"
	}
}
