// Package history records build runs and their task outcomes in SQLite.
package history

import (
	"context"
	"time"
)

// TaskRecord is the stored outcome of one task within a run.
type TaskRecord struct {
	Name     string
	Stage    int
	Status   string
	Error    string
	Duration time.Duration
}

// RunRecord is the stored outcome of one run.
type RunRecord struct {
	ID        string
	Goals     []string
	Trigger   string
	Status    string
	Error     string
	StartedAt time.Time
	Duration  time.Duration
	Tasks     []TaskRecord
}

// Store persists run records.
type Store interface {
	Record(ctx context.Context, run RunRecord) error
	Recent(ctx context.Context, limit int) ([]RunRecord, error)
	Get(ctx context.Context, id string) (RunRecord, error)
	Close() error
}
