package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/sequencer"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_RecordAndGet(t *testing.T) {
	store := newStore(t)
	started := time.Now().Truncate(time.Millisecond)
	run := RunRecord{
		ID:        uuid.NewString(),
		Goals:     []string{"default"},
		Trigger:   "cli",
		Status:    "failed",
		Error:     `task "styles" failed`,
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
		Tasks: []TaskRecord{
			{Name: "clean", Stage: 0, Status: "succeeded", Duration: 10 * time.Millisecond},
			{Name: "styles", Stage: 1, Status: "failed", Error: "boom", Duration: 20 * time.Millisecond},
			{Name: "default", Stage: 2, Status: "not_run"},
		},
	}
	require.NoError(t, store.Record(t.Context(), run))

	got, err := store.Get(t.Context(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Goals, got.Goals)
	assert.Equal(t, run.Error, got.Error)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, run.Duration, got.Duration)
	assert.Equal(t, run.Tasks, got.Tasks)
}

func TestSQLiteStore_RecentNewestFirst(t *testing.T) {
	store := newStore(t)
	base := time.Now()
	for i := range 3 {
		require.NoError(t, store.Record(t.Context(), RunRecord{
			ID:        uuid.NewString(),
			Goals:     []string{"styles"},
			Trigger:   "watch",
			Status:    "success",
			StartedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	runs, err := store.Recent(t.Context(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
}

func TestSQLiteStore_GetUnknown(t *testing.T) {
	_, err := newStore(t).Get(t.Context(), "missing")
	require.True(t, errors.Is(err, ErrRunNotFound))
}

func TestReporter_RecordsRunResult(t *testing.T) {
	store := newStore(t)
	res := &sequencer.RunResult{
		ID:        uuid.NewString(),
		Goals:     []string{"default"},
		StartedAt: time.Now(),
		Duration:  time.Second,
		Tasks: []sequencer.TaskResult{
			{Name: "clean", Status: sequencer.StatusSucceeded},
			{Name: "styles", Stage: 1, Status: sequencer.StatusFailed, Err: errors.New("sass failed")},
		},
		Err: errors.New("sass failed"),
	}
	NewReporter(store, "schedule").RunFinished(res)

	got, err := store.Get(t.Context(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "schedule", got.Trigger)
	assert.Equal(t, "failed", got.Status)
	require.Len(t, got.Tasks, 2)
	assert.Equal(t, "sass failed", got.Tasks[1].Error)
}
