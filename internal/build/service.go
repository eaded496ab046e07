package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/sequencer"
)

// BuildService is the canonical interface for executing builds.
type BuildService interface {
	// Run plans the requested goals and executes the plan.
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest names what to build.
type BuildRequest struct {
	// Goals are task names; the union of their dependency closures is run.
	Goals []string
	// Trigger describes why the build runs (cli, watch, schedule). Recorded in history.
	Trigger string
}

// BuildResult contains the outcome of a build execution.
type BuildResult struct {
	Status    BuildStatus
	RunID     string
	Plan      *sequencer.ExecutionPlan
	Run       *sequencer.RunResult
	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	BuildStatusSuccess   BuildStatus = "success"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsSuccess returns true if the build completed successfully.
func (s BuildStatus) IsSuccess() bool { return s == BuildStatusSuccess }
