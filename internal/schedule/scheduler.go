// Package schedule runs configured tasks periodically alongside the watch loop.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/assetbuilder/internal/build"
	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// TriggerSchedule is recorded as the build trigger for scheduled runs.
const TriggerSchedule = "schedule"

// Scheduler wraps a gocron scheduler.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a stopped scheduler.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler", logfields.Count(len(s.scheduler.Jobs())))
	s.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleEvery runs fn every interval. A run still in progress when the next
// one is due causes that tick to be skipped.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, fn func()) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("schedule %s: interval must be > 0, got %s", name, interval)
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create job %s: %w", name, err)
	}
	return job.ID().String(), nil
}

// ScheduleBuilds registers one job per configured entry. Each job runs its task
// through svc with ctx, so cancelling ctx stops scheduled builds from starting.
func (s *Scheduler) ScheduleBuilds(ctx context.Context, entries []config.ScheduleConfig, svc build.BuildService) error {
	for _, e := range entries {
		taskName := e.Task
		interval := e.Interval()
		_, err := s.ScheduleEvery(taskName+"-every-"+e.Every, interval, func() {
			if ctx.Err() != nil {
				return
			}
			slog.Info("Executing scheduled build", logfields.Task(taskName))
			if _, err := svc.Run(ctx, build.BuildRequest{Goals: []string{taskName}, Trigger: TriggerSchedule}); err != nil {
				slog.Error("Scheduled build failed", logfields.Task(taskName), logfields.Error(err))
			}
		})
		if err != nil {
			return err
		}
		slog.Debug("Scheduled task", logfields.Task(taskName), slog.Duration("every", interval))
	}
	return nil
}
