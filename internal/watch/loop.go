package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/build"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/reload"
)

// State is the watch loop's lifecycle position.
type State string

const (
	StateIdle      State = "idle"
	StateWatching  State = "watching"
	StateTriggered State = "triggered"
	StateExecuting State = "executing"
	StateFailed    State = "failed"
)

// TriggerWatch is recorded as the build trigger for watch-initiated runs.
const TriggerWatch = "watch"

const defaultQueueSize = 256

// Options configures a Loop.
type Options struct {
	Rules    []Rule
	Debounce time.Duration
	MaxDelay time.Duration
	// BaseDir makes event paths relative before rule matching. Empty keeps them as-is.
	BaseDir string
	// QueueSize bounds the event channel between source and debouncer.
	QueueSize int
	Notifier  reload.Notifier
	// OnTransition observes every state change.
	OnTransition func(from, to State)
}

// Loop maps debounced file changes to builds and reload notices.
type Loop struct {
	source  Source
	builder build.BuildService
	opts    Options

	mu    sync.Mutex
	state State
}

// NewLoop validates opts and returns an idle loop.
func NewLoop(source Source, builder build.BuildService, opts Options) (*Loop, error) {
	if source == nil || builder == nil {
		return nil, fmt.Errorf("watch loop requires a source and a build service")
	}
	if opts.Debounce <= 0 {
		return nil, fmt.Errorf("watch debounce must be > 0, got %s", opts.Debounce)
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Notifier == nil {
		opts.Notifier = reload.Nop{}
	}
	return &Loop{source: source, builder: builder, opts: opts, state: StateIdle}, nil
}

// State returns the current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) transition(to State) {
	l.mu.Lock()
	from := l.state
	l.state = to
	l.mu.Unlock()
	if from == to {
		return
	}
	slog.Debug("watch state", slog.String("from", string(from)), logfields.State(string(to)))
	if l.opts.OnTransition != nil {
		l.opts.OnTransition(from, to)
	}
}

// transitionFrom moves to `to` only when the loop is currently in `from`.
func (l *Loop) transitionFrom(from, to State) {
	l.mu.Lock()
	ok := l.state == from
	l.mu.Unlock()
	if ok {
		l.transition(to)
	}
}

// Run watches until ctx is cancelled or the source stops. A build in flight when ctx
// is cancelled runs to completion before Run returns nil; builds never observe the
// loop's cancellation. A source failure is returned as an error, and a source that
// returns cleanly ends watching with nil.
func (l *Loop) Run(ctx context.Context) error {
	events := make(chan FileEvent, l.opts.QueueSize)
	batches := make(chan []FileEvent)

	debouncer, err := NewDebouncer(DebouncerConfig{
		QuietWindow: l.opts.Debounce,
		MaxDelay:    l.opts.MaxDelay,
		OnPending:   func() { l.transitionFrom(StateWatching, StateTriggered) },
	})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	srcErr := make(chan error, 1)
	go func() {
		srcErr <- l.source.Run(runCtx, events)
		close(events)
	}()
	go debouncer.Run(runCtx, events, batches)

	l.transition(StateWatching)

	var (
		done   chan struct{}
		queued []FileEvent
	)
	start := func(batch []FileEvent) {
		done = make(chan struct{})
		go func(ch chan struct{}) {
			defer close(ch)
			l.cycle(runCtx, batch)
		}(done)
	}

	for {
		select {
		case <-ctx.Done():
			if done != nil {
				<-done
			}
			l.transition(StateIdle)
			return nil
		case err := <-srcErr:
			if err == nil && ctx.Err() == nil {
				slog.Warn("file watcher stopped; ending watch loop")
			}
			cancel()
			if done != nil {
				<-done
			}
			l.transition(StateIdle)
			return err
		case batch := <-batches:
			if done != nil {
				queued = append(queued, batch...)
				slog.Debug("changes queued during build", logfields.Count(len(batch)))
				continue
			}
			start(batch)
		case <-done:
			done = nil
			if len(queued) > 0 {
				batch := coalesce(queued)
				queued = nil
				l.transition(StateTriggered)
				start(batch)
			}
		}
	}
}

// cycle runs one Triggered → Executing → Watching pass for a batch.
func (l *Loop) cycle(ctx context.Context, batch []FileEvent) {
	changed := l.relative(batch)
	res := Resolve(l.opts.Rules, changed)
	if len(res.Matched) == 0 {
		slog.Debug("no watch rule matched", slog.Any("paths", changed))
		l.transition(StateWatching)
		return
	}

	runID := ""
	if len(res.Goals) > 0 {
		l.transition(StateExecuting)
		slog.Info("Change detected; rebuilding", logfields.Tasks(res.Goals), logfields.Count(len(res.Matched)))
		result, err := l.builder.Run(context.WithoutCancel(ctx), build.BuildRequest{Goals: res.Goals, Trigger: TriggerWatch})
		if err != nil {
			l.transition(StateFailed)
			slog.Warn("rebuild failed", logfields.Tasks(res.Goals), logfields.Error(err))
			l.notify(ctx, reload.ErrorMessage(err))
			l.transition(StateWatching)
			return
		}
		if result != nil {
			runID = result.RunID
		}
	}

	if kind := reloadMessageKind(res.Reload); kind != "" {
		msg := reload.NewMessage(kind, res.Matched...)
		if runID != "" {
			msg.ID = runID
		}
		l.notify(ctx, msg)
	}
	l.transition(StateWatching)
}

func (l *Loop) notify(ctx context.Context, msg reload.Message) {
	if err := l.opts.Notifier.Notify(ctx, msg); err != nil {
		slog.Warn("reload notification failed", logfields.Reload(string(msg.Kind)), logfields.Error(err))
	}
}

func (l *Loop) relative(batch []FileEvent) []string {
	out := paths(batch)
	if l.opts.BaseDir == "" {
		for i := range out {
			out[i] = filepath.ToSlash(out[i])
		}
		return out
	}
	for i, p := range out {
		if rel, err := filepath.Rel(l.opts.BaseDir, p); err == nil {
			p = rel
		}
		out[i] = filepath.ToSlash(p)
	}
	return out
}

func reloadMessageKind(k ReloadKind) reload.Kind {
	switch k {
	case ReloadFull:
		return reload.KindReload
	case ReloadCSS:
		return reload.KindCSS
	default:
		return ""
	}
}
