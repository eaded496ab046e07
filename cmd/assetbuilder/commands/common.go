package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assetbuilder/internal/build"
	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/history"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/sequencer"
	"git.home.luguber.info/inful/assetbuilder/internal/transform"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"assetbuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run       RunCmd       `cmd:"" help:"Plan and run tasks with their dependencies"`
	Watch     WatchCmd     `cmd:"" help:"Watch sources and rebuild affected tasks"`
	Serve     ServeCmd     `cmd:"" help:"Build, serve with live reload and watch for changes"`
	Clean     CleanCmd     `cmd:"" help:"Remove the working directory and empty dist"`
	Plan      PlanCmd      `cmd:"" help:"Print the execution plan (text, mermaid, dot, json)"`
	List      ListCmd      `cmd:"" help:"List configured tasks"`
	Init      InitCmd      `cmd:"" help:"Write a sample configuration file"`
	History   HistoryCmd   `cmd:"" help:"Show recorded runs"`
	PageSpeed PageSpeedCmd `cmd:"" name:"pagespeed" help:"Run PageSpeed Insights against the configured URL"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// session bundles what the build commands share.
type session struct {
	cfg      *config.Config
	project  *build.Project
	service  *build.DefaultBuildService
	registry *prom.Registry
	recorder *metrics.PrometheusRecorder
	history  history.Store
}

type sessionOptions struct {
	jobs        int
	timeout     time.Duration
	withHistory bool
}

// openSession loads the configuration and compiles the project.
func openSession(root *CLI, opts sessionOptions) (*session, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	logger := slog.Default()

	project, err := build.NewProject(cfg, build.WithTransformReporter(transform.NewLogReporter(logger, rec)))
	if err != nil {
		return nil, err
	}
	svc := build.NewBuildService(project).
		WithReporter(sequencer.NewLogReporter(logger)).
		WithRecorder(rec).
		WithMaxParallel(opts.jobs).
		WithDefaultTimeout(opts.timeout)

	s := &session{cfg: cfg, project: project, service: svc, registry: reg, recorder: rec}
	if opts.withHistory && cfg.History.Path != "" {
		store, err := history.NewSQLiteStore(cfg.Resolve(cfg.History.Path))
		if err != nil {
			return nil, err
		}
		s.history = store
		svc.WithHistory(store)
	}
	return s, nil
}

func (s *session) Close() {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			slog.Warn("Failed to close history store", logfields.Error(err))
		}
	}
}
