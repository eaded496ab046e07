package commands

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/assetbuilder/internal/build"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/reload"
	"git.home.luguber.info/inful/assetbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Tasks []string `arg:"" optional:"" name:"task" help:"Tasks to build once before watching"`
	Jobs  int      `short:"j" help:"Maximum tasks running concurrently within a stage"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(root, sessionOptions{jobs: w.Jobs, withHistory: true})
	if err != nil {
		return err
	}
	defer s.Close()

	if len(w.Tasks) > 0 {
		initialBuild(ctx, s, w.Tasks)
	}
	loop, err := newWatchLoop(s, reload.Nop{})
	if err != nil {
		return err
	}
	return loop.Run(ctx)
}

// initialBuild runs goals once. Failures are logged; the watch loop still starts
// so the user can fix the source and save again.
func initialBuild(ctx context.Context, s *session, goals []string) bool {
	res, err := s.service.Run(ctx, build.BuildRequest{Goals: goals, Trigger: TriggerCLI})
	if res != nil {
		printRunSummary(res.Run)
	}
	if err != nil {
		slog.Warn("Initial build failed", logfields.Tasks(goals), logfields.Error(err))
		return false
	}
	return true
}

func newWatchLoop(s *session, notifier reload.Notifier) (*watch.Loop, error) {
	roots := make([]string, 0, len(s.cfg.Watch.Roots))
	for _, r := range s.cfg.Watch.Roots {
		roots = append(roots, s.cfg.Resolve(r))
	}
	return watch.NewLoop(watch.NewFSSource(roots...), s.service, watch.Options{
		Rules:    watch.RulesFromConfig(s.cfg.Watch.Rules),
		Debounce: s.cfg.Watch.DebounceDuration(),
		MaxDelay: 10 * s.cfg.Watch.DebounceDuration(),
		BaseDir:  s.cfg.Resolve("."),
		Notifier: notifier,
		OnTransition: func(from, to watch.State) {
			slog.Debug("watch transition", slog.String("from", string(from)), logfields.State(string(to)))
		},
	})
}
