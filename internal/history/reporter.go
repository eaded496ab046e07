package history

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/sequencer"
)

// Reporter records every finished run into a Store. Storage failures are logged and
// never fail the build.
type Reporter struct {
	sequencer.NoopReporter
	store   Store
	trigger string
	timeout time.Duration
}

// NewReporter returns a sequencer reporter writing to store with the given trigger label.
func NewReporter(store Store, trigger string) *Reporter {
	return &Reporter{store: store, trigger: trigger, timeout: 5 * time.Second}
}

// RunFinished implements sequencer.Reporter.
func (r *Reporter) RunFinished(res *sequencer.RunResult) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.Record(ctx, FromResult(res, r.trigger)); err != nil {
		slog.Warn("Failed to record run history", logfields.RunID(res.ID), logfields.Error(err))
	}
}

// FromResult converts a run result into a record.
func FromResult(res *sequencer.RunResult, trigger string) RunRecord {
	rec := RunRecord{
		ID:        res.ID,
		Goals:     res.Goals,
		Trigger:   trigger,
		Status:    res.Outcome(),
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
	}
	if rec.Goals == nil {
		rec.Goals = []string{}
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	for _, t := range res.Tasks {
		tr := TaskRecord{Name: t.Name, Stage: t.Stage, Status: string(t.Status), Duration: t.Duration}
		if t.Err != nil {
			tr.Error = t.Err.Error()
		}
		rec.Tasks = append(rec.Tasks, tr)
	}
	return rec
}
