package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/assetbuilder/internal/devserver"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/reload"
	"git.home.luguber.info/inful/assetbuilder/internal/schedule"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Dist         bool   `help:"Serve the dist directory after a full build instead of watching"`
	Port         int    `help:"Listen port (0 uses serve.port, or serve.dist_port with --dist)"`
	Host         string `help:"Listen host" default:""`
	Goal         string `help:"Task built before serving" default:"default"`
	NoLiveReload bool   `name:"no-live-reload" help:"Disable the reload script and endpoints"`
	Jobs         int    `short:"j" help:"Maximum tasks running concurrently within a stage"`
}

func (c *ServeCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(root, sessionOptions{jobs: c.Jobs, withHistory: true})
	if err != nil {
		return err
	}
	defer s.Close()

	if ok := initialBuild(ctx, s, []string{c.Goal}); !ok && c.Dist {
		return ferrors.TaskError("build failed; not serving dist").WithContext("task", c.Goal).Build()
	}

	port := c.Port
	if port == 0 {
		port = s.cfg.Serve.Port
		if c.Dist {
			port = s.cfg.Serve.DistPort
		}
	}
	liveReload := s.cfg.Serve.LiveReloadEnabled() && !c.NoLiveReload && !c.Dist

	opts := devserver.Options{
		Addr:       fmt.Sprintf("%s:%d", c.Host, port),
		LiveReload: liveReload,
		Registry:   s.registry,
	}
	if c.Dist {
		opts.Roots = []string{s.project.Workspace.DistDir()}
		return devserver.New(opts).Serve(ctx)
	}
	opts.Roots = []string{s.project.Workspace.WorkingDir(), s.project.SourceDir}

	notifiers := reload.Multi{}
	if liveReload {
		opts.SSE = reload.NewSSEHub(s.recorder)
		opts.WS = reload.NewWSHub(s.recorder)
		notifiers = append(notifiers, opts.SSE, opts.WS)
	}
	if s.cfg.Serve.NATSURL != "" {
		nn, err := reload.DialNATS(s.cfg.Serve.NATSURL, s.cfg.Serve.NATSSubject)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryNetwork, "reload notifier unavailable").
				WithContext("url", s.cfg.Serve.NATSURL).Build()
		}
		defer func() { _ = nn.Close() }()
		notifiers = append(notifiers, nn)
	}

	loop, err := newWatchLoop(s, notifiers)
	if err != nil {
		return err
	}
	opts.Status = func() map[string]any { return map[string]any{"watch": string(loop.State())} }
	server := devserver.New(opts)

	sched, err := schedule.NewScheduler()
	if err != nil {
		return err
	}
	if err := sched.ScheduleBuilds(ctx, s.cfg.Schedule, s.service); err != nil {
		return err
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			slog.Warn("scheduler shutdown", logfields.Error(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Serve(gctx) })
	g.Go(func() error { return loop.Run(gctx) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
