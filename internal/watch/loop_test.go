package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/build"
	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/reload"
)

type chanSource struct {
	ch chan FileEvent
}

func newChanSource() *chanSource { return &chanSource{ch: make(chan FileEvent, 64)} }

func (s *chanSource) Run(ctx context.Context, out chan<- FileEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.ch:
			out <- ev
		}
	}
}

func (s *chanSource) emit(p string) { s.ch <- FileEvent{Path: p, Kind: Modified, At: time.Now()} }

type fakeBuilder struct {
	mu       sync.Mutex
	requests []build.BuildRequest
	err      error
	release  chan struct{}
	started  chan struct{}
	ctxErrs  []error
}

func (b *fakeBuilder) Run(ctx context.Context, req build.BuildRequest) (*build.BuildResult, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	release := b.release
	started := b.started
	b.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	b.mu.Lock()
	b.ctxErrs = append(b.ctxErrs, ctx.Err())
	b.mu.Unlock()
	if b.err != nil {
		return &build.BuildResult{Status: build.BuildStatusFailed}, b.err
	}
	return &build.BuildResult{Status: build.BuildStatusSuccess, RunID: "run-1"}, nil
}

func (b *fakeBuilder) calls() []build.BuildRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]build.BuildRequest(nil), b.requests...)
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []reload.Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg reload.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *recordingNotifier) messages() []reload.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]reload.Message(nil), n.msgs...)
}

var starterRules = []Rule{
	{Match: "**/*.html", Reload: ReloadFull},
	{Match: "**/*.{scss,css}", Tasks: []string{"styles"}, Reload: ReloadCSS},
	{Match: "**/*.js", Tasks: []string{"jshint"}, Reload: ReloadNone},
	{Match: "**/*.{png,jpg,jpeg}", Tasks: []string{"images"}, Reload: ReloadAuto},
}

type harness struct {
	src      *chanSource
	builder  *fakeBuilder
	notifier *recordingNotifier
	loop     *Loop
	errCh    chan error
	cancel   context.CancelFunc

	mu          sync.Mutex
	transitions []State
}

func startLoop(t *testing.T, debounce time.Duration, builder *fakeBuilder) *harness {
	t.Helper()
	h := &harness{src: newChanSource(), builder: builder, notifier: &recordingNotifier{}, errCh: make(chan error, 1)}
	loop, err := NewLoop(h.src, builder, Options{
		Rules:    starterRules,
		Debounce: debounce,
		Notifier: h.notifier,
		OnTransition: func(_, to State) {
			h.mu.Lock()
			h.transitions = append(h.transitions, to)
			h.mu.Unlock()
		},
	})
	require.NoError(t, err)
	h.loop = loop

	ctx, cancel := context.WithCancel(t.Context())
	h.cancel = cancel
	go func() { h.errCh <- loop.Run(ctx) }()
	require.Eventually(t, func() bool { return loop.State() == StateWatching }, time.Second, time.Millisecond)
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.errCh:
		case <-time.After(2 * time.Second):
			t.Error("loop did not stop")
		}
	})
	return h
}

func (h *harness) states() []State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]State(nil), h.transitions...)
}

func TestLoop_BurstCoalescesToSingleRun(t *testing.T) {
	builder := &fakeBuilder{}
	h := startLoop(t, 40*time.Millisecond, builder)

	for range 5 {
		h.src.emit("src/styles/main.scss")
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(builder.calls()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(120 * time.Millisecond)
	assert.Len(t, builder.calls(), 1)
}

func TestLoop_SpacedEventsRunEach(t *testing.T) {
	builder := &fakeBuilder{}
	h := startLoop(t, 20*time.Millisecond, builder)

	for i := range 3 {
		h.src.emit("src/styles/main.scss")
		require.Eventually(t, func() bool { return len(builder.calls()) == i+1 }, time.Second, 2*time.Millisecond)
		require.Eventually(t, func() bool { return h.loop.State() == StateWatching }, time.Second, 2*time.Millisecond)
		time.Sleep(50 * time.Millisecond)
	}
	assert.Len(t, builder.calls(), 3)
}

func TestLoop_StylesheetChangeRunsOnlyStyles(t *testing.T) {
	builder := &fakeBuilder{}
	h := startLoop(t, 50*time.Millisecond, builder)

	h.src.emit("src/styles/components/_buttons.scss")
	h.src.emit("src/styles/main.css")

	require.Eventually(t, func() bool { return len(h.states()) == 4 }, time.Second, 2*time.Millisecond)
	calls := builder.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"styles"}, calls[0].Goals)
	assert.Equal(t, TriggerWatch, calls[0].Trigger)

	msg := h.notifier.messages()[0]
	assert.Equal(t, reload.KindCSS, msg.Kind)
	assert.Equal(t, "run-1", msg.ID)
	assert.Equal(t, []string{"src/styles/components/_buttons.scss", "src/styles/main.css"}, msg.Paths)
	assert.Equal(t, []State{StateWatching, StateTriggered, StateExecuting, StateWatching}, h.states())
}

func TestLoop_HTMLChangeReloadsWithoutBuild(t *testing.T) {
	builder := &fakeBuilder{}
	h := startLoop(t, 10*time.Millisecond, builder)

	h.src.emit("src/index.html")
	require.Eventually(t, func() bool { return len(h.notifier.messages()) == 1 }, time.Second, 2*time.Millisecond)
	assert.Empty(t, builder.calls())
	assert.Equal(t, reload.KindReload, h.notifier.messages()[0].Kind)
}

func TestLoop_ImageChangeRebuildsWithoutNotice(t *testing.T) {
	builder := &fakeBuilder{}
	h := startLoop(t, 10*time.Millisecond, builder)

	h.src.emit("src/img/logo.png")
	require.Eventually(t, func() bool { return len(builder.calls()) == 1 }, time.Second, 2*time.Millisecond)
	require.Eventually(t, func() bool { return h.loop.State() == StateWatching }, time.Second, 2*time.Millisecond)
	assert.Equal(t, []string{"images"}, builder.calls()[0].Goals)
	assert.Empty(t, h.notifier.messages())
}

func TestLoop_UnmatchedPathIgnored(t *testing.T) {
	builder := &fakeBuilder{}
	h := startLoop(t, 10*time.Millisecond, builder)

	h.src.emit("src/README")
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, builder.calls())
	assert.Empty(t, h.notifier.messages())
	assert.Equal(t, StateWatching, h.loop.State())
}

func TestLoop_FailureReturnsToWatching(t *testing.T) {
	builder := &fakeBuilder{err: errors.New("sass: syntax error")}
	h := startLoop(t, 10*time.Millisecond, builder)

	h.src.emit("src/styles/main.scss")
	require.Eventually(t, func() bool { return len(h.notifier.messages()) == 1 }, time.Second, 2*time.Millisecond)
	require.Eventually(t, func() bool { return h.loop.State() == StateWatching }, time.Second, 2*time.Millisecond)

	msg := h.notifier.messages()[0]
	assert.Equal(t, reload.KindError, msg.Kind)
	assert.Contains(t, msg.Error, "syntax error")
	assert.Contains(t, h.states(), StateFailed)

	h.src.emit("src/styles/main.scss")
	require.Eventually(t, func() bool { return len(builder.calls()) == 2 }, time.Second, 2*time.Millisecond)
}

func TestLoop_EventsDuringExecutionAreQueued(t *testing.T) {
	builder := &fakeBuilder{release: make(chan struct{}), started: make(chan struct{}, 4)}
	h := startLoop(t, 10*time.Millisecond, builder)

	h.src.emit("src/styles/main.scss")
	<-builder.started
	assert.Equal(t, StateExecuting, h.loop.State())

	h.src.emit("src/views/js/app.js")
	h.src.emit("src/img/a.png")
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, builder.calls(), 1)

	builder.release <- struct{}{}
	<-builder.started
	builder.release <- struct{}{}

	calls := builder.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"jshint", "images"}, calls[1].Goals)
}

func TestLoop_CancelWaitsForRunningBuild(t *testing.T) {
	builder := &fakeBuilder{release: make(chan struct{}), started: make(chan struct{}, 1)}
	src := newChanSource()
	loop, err := NewLoop(src, builder, Options{Rules: starterRules, Debounce: 5 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	require.Eventually(t, func() bool { return loop.State() == StateWatching }, time.Second, time.Millisecond)

	src.emit("src/styles/main.scss")
	<-builder.started
	cancel()

	select {
	case <-errCh:
		t.Fatal("Run returned before the build finished")
	case <-time.After(30 * time.Millisecond):
	}
	close(builder.release)
	require.NoError(t, <-errCh)
	assert.Equal(t, StateIdle, loop.State())

	builder.mu.Lock()
	defer builder.mu.Unlock()
	require.Len(t, builder.ctxErrs, 1)
	assert.NoError(t, builder.ctxErrs[0], "the running build must not see the loop's cancellation")
}

func TestLoop_SourceErrorStopsLoop(t *testing.T) {
	boom := errors.New("watch root missing")
	src := sourceFunc(func(context.Context, chan<- FileEvent) error { return boom })
	loop, err := NewLoop(src, &fakeBuilder{}, Options{Debounce: time.Millisecond})
	require.NoError(t, err)
	require.ErrorIs(t, loop.Run(t.Context()), boom)
}

func TestLoop_SourceReturningCleanlyEndsLoop(t *testing.T) {
	src := sourceFunc(func(context.Context, chan<- FileEvent) error { return nil })
	loop, err := NewLoop(src, &fakeBuilder{}, Options{Debounce: time.Millisecond})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(t.Context()) }()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept looping after the source stopped")
	}
	assert.Equal(t, StateIdle, loop.State())
}

type sourceFunc func(context.Context, chan<- FileEvent) error

func (f sourceFunc) Run(ctx context.Context, out chan<- FileEvent) error { return f(ctx, out) }

func TestNewLoopValidation(t *testing.T) {
	_, err := NewLoop(nil, &fakeBuilder{}, Options{Debounce: time.Second})
	require.Error(t, err)
	_, err = NewLoop(newChanSource(), &fakeBuilder{}, Options{})
	require.Error(t, err)
}

func TestLoop_WithProjectPlansStyleSubgraph(t *testing.T) {
	cfg, err := config.Parse([]byte(config.SampleConfig))
	require.NoError(t, err)
	cfg.BaseDir = t.TempDir()
	project, err := build.NewProject(cfg)
	require.NoError(t, err)
	svc := build.NewBuildService(project)

	res := Resolve(RulesFromConfig(cfg.Watch.Rules), []string{"src/styles/main.scss"})
	plan, err := svc.Plan(res.Goals...)
	require.NoError(t, err)
	assert.Equal(t, []string{"styles"}, plan.Tasks())
	assert.Equal(t, ReloadCSS, res.Reload)
}

func TestLoop_RelativePaths(t *testing.T) {
	base := t.TempDir()
	loop, err := NewLoop(newChanSource(), &fakeBuilder{}, Options{Debounce: time.Millisecond, BaseDir: base})
	require.NoError(t, err)
	got := loop.relative([]FileEvent{{Path: filepath.Join(base, "src", "a.css")}})
	assert.Equal(t, []string{"src/a.css"}, got)
}

func TestFSSource_EmitsChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "styles"), 0o755))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	out := make(chan FileEvent, 16)
	src := NewFSSource(root)
	errCh := make(chan error, 1)
	go func() { errCh <- src.Run(ctx, out) }()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "styles", ".main.scss.swp"), []byte("x"), 0o644))
	target := filepath.Join(root, "styles", "main.scss")
	require.NoError(t, os.WriteFile(target, []byte("a { color: red }"), 0o644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-out:
			assert.NotContains(t, ev.Path, ".swp")
			if ev.Path == target {
				cancel()
				require.NoError(t, <-errCh)
				return
			}
		case <-deadline:
			t.Fatal("no event for written file")
		}
	}
}

func TestFSSource_MissingRoot(t *testing.T) {
	src := NewFSSource(filepath.Join(t.TempDir(), "missing"))
	err := src.Run(t.Context(), make(chan FileEvent))
	require.Error(t, err)
}
