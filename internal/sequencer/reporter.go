package sequencer

import (
	"log/slog"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// Reporter receives run lifecycle notifications. Task work functions never log run
// progress themselves; everything observable about sequencing flows through here.
type Reporter interface {
	RunStarted(runID string, plan *ExecutionPlan)
	StageStarted(runID string, index int, tasks []string)
	TaskStarted(runID string, stage int, name string)
	TaskFinished(runID string, result TaskResult)
	RunFinished(result *RunResult)
}

// NoopReporter ignores every notification.
type NoopReporter struct{}

func (NoopReporter) RunStarted(string, *ExecutionPlan)   {}
func (NoopReporter) StageStarted(string, int, []string)  {}
func (NoopReporter) TaskStarted(string, int, string)     {}
func (NoopReporter) TaskFinished(string, TaskResult)     {}
func (NoopReporter) RunFinished(*RunResult)              {}

// LogReporter writes structured progress lines through slog.
type LogReporter struct {
	Logger *slog.Logger
}

// NewLogReporter returns a reporter using logger, or slog.Default when nil.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{Logger: logger}
}

func (r *LogReporter) RunStarted(runID string, plan *ExecutionPlan) {
	r.Logger.Info("Starting run",
		logfields.RunID(runID),
		logfields.Tasks(plan.Goals),
		slog.Int("stages", len(plan.Stages)),
		logfields.Count(plan.Len()))
}

func (r *LogReporter) StageStarted(runID string, index int, tasks []string) {
	r.Logger.Debug("Starting stage", logfields.RunID(runID), logfields.Stage(index), logfields.Tasks(tasks))
}

func (r *LogReporter) TaskStarted(runID string, stage int, name string) {
	r.Logger.Info("Task started", logfields.RunID(runID), logfields.Stage(stage), logfields.Task(name))
}

func (r *LogReporter) TaskFinished(runID string, result TaskResult) {
	attrs := []any{
		logfields.RunID(runID),
		logfields.Stage(result.Stage),
		logfields.Task(result.Name),
		logfields.Status(string(result.Status)),
		logfields.DurationMS(float64(result.Duration.Microseconds()) / 1000),
	}
	if result.Err != nil {
		r.Logger.Error("Task failed", append(attrs, logfields.Error(result.Err))...)
		return
	}
	r.Logger.Info("Task finished", attrs...)
}

func (r *LogReporter) RunFinished(result *RunResult) {
	attrs := []any{
		logfields.RunID(result.ID),
		logfields.DurationMS(float64(result.Duration.Microseconds()) / 1000),
		logfields.Count(len(result.Tasks)),
	}
	if result.Err != nil {
		r.Logger.Error("Run failed", append(attrs, logfields.Error(result.Err))...)
		return
	}
	r.Logger.Info("Run finished", attrs...)
}

// MultiReporter fans notifications out to several reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) RunStarted(runID string, plan *ExecutionPlan) {
	for _, r := range m {
		r.RunStarted(runID, plan)
	}
}

func (m MultiReporter) StageStarted(runID string, index int, tasks []string) {
	for _, r := range m {
		r.StageStarted(runID, index, tasks)
	}
}

func (m MultiReporter) TaskStarted(runID string, stage int, name string) {
	for _, r := range m {
		r.TaskStarted(runID, stage, name)
	}
}

func (m MultiReporter) TaskFinished(runID string, result TaskResult) {
	for _, r := range m {
		r.TaskFinished(runID, result)
	}
}

func (m MultiReporter) RunFinished(result *RunResult) {
	for _, r := range m {
		r.RunFinished(result)
	}
}
