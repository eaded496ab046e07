package transform

import (
	"log/slog"

	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

// Summary describes a batch observed by the size adapter.
type Summary struct {
	Adapter string
	Title   string
	Files   int
	Bytes   int64
}

// Reporter receives adapter diagnostics. Adapters never log on their own.
type Reporter interface {
	// FileSkipped is called when a per-file adapter drops a file after an error.
	FileSkipped(err *TransformError)
	// Diagnostic carries non-fatal tool output, such as lint findings.
	Diagnostic(adapter, path, message string)
	// Summary reports batch statistics.
	Summary(s Summary)
}

// NoopReporter discards everything.
type NoopReporter struct{}

func (NoopReporter) FileSkipped(*TransformError)       {}
func (NoopReporter) Diagnostic(string, string, string) {}
func (NoopReporter) Summary(Summary)                   {}

// LogReporter logs diagnostics through slog and counts skipped files.
type LogReporter struct {
	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// NewLogReporter returns a reporter writing to logger (slog.Default when nil).
func NewLogReporter(logger *slog.Logger, rec metrics.Recorder) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &LogReporter{Logger: logger, Recorder: rec}
}

func (r *LogReporter) FileSkipped(err *TransformError) {
	r.Recorder.IncTransformSkipped(err.Adapter)
	attrs := []any{logfields.Adapter(err.Adapter), logfields.Path(err.Path)}
	if err.Err != nil {
		attrs = append(attrs, logfields.Error(err.Err))
	}
	if err.Diagnostic != "" {
		attrs = append(attrs, slog.String("diagnostic", err.Diagnostic))
	}
	r.Logger.Error("Transform failed, skipping file", attrs...)
}

func (r *LogReporter) Diagnostic(adapter, path, message string) {
	r.Logger.Warn(message, logfields.Adapter(adapter), logfields.Path(path))
}

func (r *LogReporter) Summary(s Summary) {
	attrs := []any{
		logfields.Adapter(s.Adapter),
		logfields.Count(s.Files),
		slog.String("size", humanize.Bytes(uint64(max(s.Bytes, 0)))),
	}
	if s.Title != "" {
		attrs = append(attrs, slog.String("title", s.Title))
	}
	r.Logger.Info("Output size", attrs...)
}
