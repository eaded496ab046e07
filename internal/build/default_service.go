package build

import (
	"context"
	"errors"
	"log/slog"
	"time"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/history"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/sequencer"
)

// DefaultBuildService plans and runs goals of one project. Runs are serialized: the
// watch loop, the scheduler and the CLI share one service, and two runs must never
// write the same outputs at once.
type DefaultBuildService struct {
	project        *Project
	reporter       sequencer.Reporter
	recorder       metrics.Recorder
	history        history.Store
	maxParallel    int
	defaultTimeout time.Duration

	running  chan struct{}
	inflight sequencer.Inflight
}

// NewBuildService creates a service with the run limits of the project's configuration.
func NewBuildService(p *Project) *DefaultBuildService {
	return &DefaultBuildService{
		project:        p,
		reporter:       sequencer.NoopReporter{},
		recorder:       metrics.NoopRecorder{},
		maxParallel:    p.Config.Run.Jobs,
		defaultTimeout: p.Config.Run.TimeoutDuration(),
		running:        make(chan struct{}, 1),
	}
}

// WithReporter sets the run reporter.
func (s *DefaultBuildService) WithReporter(r sequencer.Reporter) *DefaultBuildService {
	if r != nil {
		s.reporter = r
	}
	return s
}

// WithRecorder sets the metrics recorder.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithHistory records every run, labelled with the request trigger, into store.
func (s *DefaultBuildService) WithHistory(store history.Store) *DefaultBuildService {
	s.history = store
	return s
}

// WithMaxParallel overrides the configured job limit when n is positive.
func (s *DefaultBuildService) WithMaxParallel(n int) *DefaultBuildService {
	if n > 0 {
		s.maxParallel = n
	}
	return s
}

// WithDefaultTimeout overrides the configured task timeout when d is positive.
func (s *DefaultBuildService) WithDefaultTimeout(d time.Duration) *DefaultBuildService {
	if d > 0 {
		s.defaultTimeout = d
	}
	return s
}

// Project returns the compiled project.
func (s *DefaultBuildService) Project() *Project { return s.project }

// Plan computes the execution plan for goals.
func (s *DefaultBuildService) Plan(goals ...string) (*sequencer.ExecutionPlan, error) {
	return sequencer.PlanGoals(s.project.Registry, goals...)
}

// Run executes req. Planning errors are returned as errors; task failures are
// reported through the result and also returned. A run waits for the previous one,
// including work functions it abandoned after a timeout, before it starts.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	start := time.Now()
	plan, err := s.Plan(req.Goals...)
	if err != nil {
		return nil, err
	}

	if err := s.acquire(ctx, req.Trigger); err != nil {
		return nil, err
	}
	defer func() { <-s.running }()

	reporter := s.reporter
	if s.history != nil {
		reporter = sequencer.MultiReporter{s.reporter, history.NewReporter(s.history, req.Trigger)}
	}
	runner := sequencer.NewRunner(s.project.Registry,
		sequencer.WithReporter(reporter),
		sequencer.WithRecorder(s.recorder),
		sequencer.WithMaxParallel(s.maxParallel),
		sequencer.WithDefaultTimeout(s.defaultTimeout),
		sequencer.WithInflight(&s.inflight),
	)
	run := runner.Run(ctx, plan)

	res := &BuildResult{
		Status:    BuildStatusSuccess,
		RunID:     run.ID,
		Plan:      plan,
		Run:       run,
		StartTime: start,
		EndTime:   time.Now(),
	}
	res.Duration = res.EndTime.Sub(start)
	if run.Err != nil {
		res.Status = BuildStatusFailed
		if errors.Is(run.Err, context.Canceled) {
			res.Status = BuildStatusCancelled
		}
		return res, run.Err
	}
	return res, nil
}

// acquire takes the run slot and then waits out tasks abandoned by earlier runs.
func (s *DefaultBuildService) acquire(ctx context.Context, trigger string) error {
	select {
	case s.running <- struct{}{}:
	default:
		slog.Debug("Waiting for the running build", slog.String("trigger", trigger))
		select {
		case s.running <- struct{}{}:
		case <-ctx.Done():
			return ferrors.WrapError(ctx.Err(), ferrors.CategoryRuntime, "canceled while waiting for the running build").Build()
		}
	}
	if n := s.inflight.Len(); n > 0 {
		slog.Warn("Waiting for timed-out tasks to return", logfields.Count(n))
		if err := s.inflight.Wait(ctx); err != nil {
			<-s.running
			return ferrors.WrapError(err, ferrors.CategoryRuntime, "canceled while waiting for timed-out tasks").Build()
		}
	}
	return nil
}
