package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and creates when needed) the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, ferrors.FileSystemError("create history directory").WithCause(err).WithContext("path", dbPath).Build()
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		goals TEXT NOT NULL,
		run_trigger TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS task_runs (
		run_id TEXT NOT NULL REFERENCES runs(id),
		name TEXT NOT NULL,
		stage INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_task_runs_run ON task_runs(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores run and its tasks in one transaction.
func (s *SQLiteStore) Record(ctx context.Context, run RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	goals, err := json.Marshal(run.Goals)
	if err != nil {
		return fmt.Errorf("marshal goals: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO runs (id, goals, run_trigger, status, error, started_at, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)",
		run.ID, string(goals), run.Trigger, run.Status, run.Error, run.StartedAt.UnixMilli(), run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, t := range run.Tasks {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO task_runs (run_id, name, stage, status, error, duration_ms) VALUES (?, ?, ?, ?, ?, ?)",
			run.ID, t.Name, t.Stage, t.Status, t.Error, t.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("insert task run: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Recent returns the newest runs first, at most limit of them.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, goals, run_trigger, status, error, started_at, duration_ms FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	for i := range runs {
		if runs[i].Tasks, err = s.tasks(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Get returns one run with its tasks.
func (s *SQLiteStore) Get(ctx context.Context, id string) (RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, goals, run_trigger, status, error, started_at, duration_ms FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ferrors.NewError(ferrors.CategoryNotFound, fmt.Sprintf("run %q not found", id)).
			WithCause(ErrRunNotFound).
			Build()
	}
	if err != nil {
		return RunRecord{}, err
	}
	r.Tasks, err = s.tasks(ctx, id)
	return r, err
}

func (s *SQLiteStore) tasks(ctx context.Context, runID string) ([]TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, stage, status, error, duration_ms FROM task_runs WHERE run_id = ? ORDER BY stage, name", runID)
	if err != nil {
		return nil, fmt.Errorf("query task runs: %w", err)
	}
	defer rows.Close()

	var out []TaskRecord
	for rows.Next() {
		var t TaskRecord
		var errText sql.NullString
		var ms int64
		if err := rows.Scan(&t.Name, &t.Stage, &t.Status, &errText, &ms); err != nil {
			return nil, fmt.Errorf("scan task run: %w", err)
		}
		t.Error = errText.String
		t.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var r RunRecord
	var goals string
	var errText sql.NullString
	var started, ms int64
	if err := row.Scan(&r.ID, &goals, &r.Trigger, &r.Status, &errText, &started, &ms); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(goals), &r.Goals); err != nil {
		return r, fmt.Errorf("unmarshal goals: %w", err)
	}
	r.Error = errText.String
	r.StartedAt = time.UnixMilli(started)
	r.Duration = time.Duration(ms) * time.Millisecond
	return r, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
