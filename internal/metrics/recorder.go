package metrics

import "time"

// ResultLabel enumerates task result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultTimeout ResultLabel = "timeout"
	ResultNotRun  ResultLabel = "not_run"
)

// Recorder defines observability hooks for runs, tasks, transforms and reloads.
// Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObserveTaskDuration(task string, d time.Duration)
	IncTaskResult(task string, result ResultLabel)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome string) // outcome: success|failed|canceled
	IncTransformSkipped(adapter string)
	IncReloadBroadcast(kind string)
	SetReloadClients(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveTaskDuration(string, time.Duration) {}
func (NoopRecorder) IncTaskResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveRunDuration(time.Duration)          {}
func (NoopRecorder) IncRunOutcome(string)                      {}
func (NoopRecorder) IncTransformSkipped(string)                {}
func (NoopRecorder) IncReloadBroadcast(string)                 {}
func (NoopRecorder) SetReloadClients(int)                      {}
