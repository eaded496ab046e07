package sequencer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Runner executes plans against a registry.
type Runner struct {
	reg            *task.Registry
	reporter       Reporter
	recorder       metrics.Recorder
	maxParallel    int
	defaultTimeout time.Duration
	inflight       *Inflight
}

// Option configures a Runner.
type Option func(*Runner)

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(rn *Runner) {
		if r != nil {
			rn.reporter = r
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(rn *Runner) {
		if rec != nil {
			rn.recorder = rec
		}
	}
}

// WithMaxParallel bounds how many tasks of one stage run at once. Zero or less means no bound.
func WithMaxParallel(n int) Option {
	return func(rn *Runner) { rn.maxParallel = n }
}

// WithDefaultTimeout applies to tasks that declare no timeout. Zero disables it.
// A timed-out work function is abandoned, not stopped: it keeps running until it
// observes its cancelled context. Track it with WithInflight.
func WithDefaultTimeout(d time.Duration) Option {
	return func(rn *Runner) { rn.defaultTimeout = d }
}

// WithInflight registers every work function run under a timeout with f until it returns.
func WithInflight(f *Inflight) Option {
	return func(rn *Runner) { rn.inflight = f }
}

// NewRunner returns a runner over reg.
func NewRunner(reg *task.Registry, opts ...Option) *Runner {
	r := &Runner{
		reg:      reg,
		reporter: NoopReporter{},
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes plan. Stages run in order; the members of a stage run concurrently and
// are all awaited. After a stage with a failure no further stage starts. The returned
// result always lists every planned task.
func (r *Runner) Run(ctx context.Context, plan *ExecutionPlan) *RunResult {
	if plan == nil {
		plan = &ExecutionPlan{}
	}
	res := &RunResult{
		ID:        uuid.NewString(),
		Goals:     plan.Goals,
		StartedAt: time.Now(),
	}
	r.reporter.RunStarted(res.ID, plan)

	stopped := false
	for i, stage := range plan.Stages {
		if !stopped && ctx.Err() != nil {
			res.Err = ferrors.WrapError(ctx.Err(), ferrors.CategoryRuntime, "run canceled").Build()
			stopped = true
		}
		if stopped {
			for _, name := range stage {
				res.Tasks = append(res.Tasks, TaskResult{Name: name, Stage: i, Status: StatusNotRun})
				r.recorder.IncTaskResult(name, metrics.ResultNotRun)
			}
			continue
		}

		r.reporter.StageStarted(res.ID, i, stage)
		results := r.runStage(ctx, res.ID, i, stage)
		for _, tr := range results {
			res.Tasks = append(res.Tasks, tr)
			if tr.Err != nil && res.Err == nil {
				res.Err = tr.Err
			}
			if tr.Err != nil {
				stopped = true
			}
		}
	}

	res.Duration = time.Since(res.StartedAt)
	r.recorder.ObserveRunDuration(res.Duration)
	r.recorder.IncRunOutcome(res.Outcome())
	r.reporter.RunFinished(res)
	return res
}

// runStage runs every member of a stage and waits for all of them. Results come
// back in stage order, which is sorted by name.
func (r *Runner) runStage(ctx context.Context, runID string, index int, stage []string) []TaskResult {
	results := make([]TaskResult, len(stage))
	var g errgroup.Group
	if r.maxParallel > 0 {
		g.SetLimit(r.maxParallel)
	}
	for slot, name := range stage {
		g.Go(func() error {
			results[slot] = r.runTask(ctx, runID, index, name)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) runTask(ctx context.Context, runID string, stage int, name string) TaskResult {
	tr := TaskResult{Name: name, Stage: stage, Started: time.Now()}
	r.reporter.TaskStarted(runID, stage, name)

	t, err := r.reg.Get(name)
	if err == nil {
		timeout := t.Timeout
		if timeout <= 0 {
			timeout = r.defaultTimeout
		}
		err = r.execute(ctx, t, timeout)
	}

	tr.Duration = time.Since(tr.Started)
	switch {
	case err == nil:
		tr.Status = StatusSucceeded
		r.recorder.IncTaskResult(name, metrics.ResultSuccess)
	case errors.Is(err, ErrTaskTimeout):
		tr.Status = StatusTimedOut
		tr.Err = err
		r.recorder.IncTaskResult(name, metrics.ResultTimeout)
	default:
		tr.Status = StatusFailed
		tr.Err = taskFailed(name, err)
		r.recorder.IncTaskResult(name, metrics.ResultFailed)
	}
	r.recorder.ObserveTaskDuration(name, tr.Duration)
	r.reporter.TaskFinished(runID, tr)
	return tr
}

// execute calls the task's work function. With a timeout the task gets a derived
// context; once the deadline passes the runner stops waiting and reports
// ErrTaskTimeout even if the work function has not returned yet.
func (r *Runner) execute(ctx context.Context, t task.Task, timeout time.Duration) error {
	if timeout <= 0 {
		return call(ctx, t)
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	r.inflight.acquire()
	go func() {
		defer r.inflight.release()
		done <- call(tctx, t)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return taskTimedOut(t.Name, timeout)
		}
		return err
	case <-tctx.Done():
		if ctx.Err() != nil {
			return <-done
		}
		return taskTimedOut(t.Name, timeout)
	}
}

func call(ctx context.Context, t task.Task) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = taskPanicked(t.Name, v)
		}
	}()
	return t.Run(ctx)
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTaskTimeout)
}
