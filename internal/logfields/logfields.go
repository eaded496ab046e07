package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyTask       = "task"
	KeyTasks      = "tasks"
	KeyStage      = "stage"
	KeyStatus     = "status"
	KeyAdapter    = "adapter"
	KeyPath       = "path"
	KeyTarget     = "target"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyState      = "state"
	KeyReload     = "reload"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr          { return slog.String(KeyRunID, id) }
func Task(name string) slog.Attr         { return slog.String(KeyTask, name) }
func Tasks(names []string) slog.Attr     { return slog.Any(KeyTasks, names) }
func Stage(index int) slog.Attr          { return slog.Int(KeyStage, index) }
func Status(s string) slog.Attr          { return slog.String(KeyStatus, s) }
func Adapter(name string) slog.Attr      { return slog.String(KeyAdapter, name) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Target(t string) slog.Attr          { return slog.String(KeyTarget, t) }
func Count(n int) slog.Attr              { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func State(s string) slog.Attr           { return slog.String(KeyState, s) }
func Reload(kind string) slog.Attr       { return slog.String(KeyReload, kind) }
func URL(u string) slog.Attr             { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
