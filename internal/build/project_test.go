package build

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/history"
	"git.home.luguber.info/inful/assetbuilder/internal/sequencer"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
	"git.home.luguber.info/inful/assetbuilder/internal/transform"
)

func writeFile(t *testing.T, root, rel, data string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	return p
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}

func loadProject(t *testing.T, root, doc string, opts ...ProjectOption) *Project {
	t.Helper()
	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)
	cfg.BaseDir = root
	p, err := NewProject(cfg, opts...)
	require.NoError(t, err)
	return p
}

const projectDoc = `
routes:
  - match: "scripts/**"
    target: dist
    strip: scripts
    prefix: views/js
  - match: "**"
    target: dist
tasks:
  - name: clean
    builtin: clean
  - name: styles
    after: [clean]
    src: ["styles/*.css"]
    steps:
      - kind: dest
        options: {target: working}
      - kind: minify
        match: "*.css"
      - kind: dest
  - name: scripts
    after: [clean, styles]
    src: ["scripts/*.js"]
    steps:
      - kind: concat
        options: {name: scripts/main.js}
      - kind: dest
  - name: copy
    after: [clean, styles]
    src: ["*.txt"]
  - name: default
    deps: [clean, styles, scripts, copy]
`

func TestNewProject_RegistersTasks(t *testing.T) {
	p := loadProject(t, t.TempDir(), projectDoc)
	assert.Equal(t, []string{"clean", "copy", "default", "scripts", "styles"}, p.Registry.Names())

	plan, err := sequencer.Plan(p.Registry, "default")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"clean"}, {"styles"}, {"copy", "scripts"}, {"default"}}, plan.Stages)
}

func TestBuildService_DefaultPipeline(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/styles/main.css", "body {\n  color: #ff0000;\n}\n")
	writeFile(t, root, "src/scripts/a.js", "var a = 1;")
	writeFile(t, root, "src/scripts/b.js", "var b = 2;")
	writeFile(t, root, "src/robots.txt", "User-agent: *")
	stale := writeFile(t, root, "dist/old.html", "stale")
	keep := writeFile(t, root, "dist/.git/HEAD", "ref")

	svc := NewBuildService(loadProject(t, root, projectDoc))
	res, err := svc.Run(t.Context(), BuildRequest{Goals: []string{"default"}})
	require.NoError(t, err)
	require.True(t, res.Status.IsSuccess())

	assert.Equal(t, "body {\n  color: #ff0000;\n}\n", readFile(t, filepath.Join(root, ".tmp/styles/main.css")))
	assert.Equal(t, "body{color:red}", readFile(t, filepath.Join(root, "dist/styles/main.css")))
	assert.Equal(t, "var a = 1;\nvar b = 2;", readFile(t, filepath.Join(root, "dist/views/js/main.js")))
	assert.Equal(t, "User-agent: *", readFile(t, filepath.Join(root, "dist/robots.txt")))
	assert.NoFileExists(t, stale)
	assert.FileExists(t, keep)
}

func TestBuildService_StyleGoalSkipsClean(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/styles/main.css", "a{}")
	other := writeFile(t, root, "dist/index.html", "<p>keep</p>")

	svc := NewBuildService(loadProject(t, root, projectDoc))
	res, err := svc.Run(t.Context(), BuildRequest{Goals: []string{"styles"}})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"styles"}}, res.Plan.Stages)
	assert.FileExists(t, other)
}

func TestBuildService_FailingTaskNamesTask(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/scripts/a.js", "x")

	doc := `
tasks:
  - name: scripts
    src: ["scripts/*.js"]
    steps:
      - kind: boom
`
	p := loadProject(t, root, doc, WithAdapters(func(c *transform.Catalog) {
		c.Register("boom", func(transform.Env, transform.Options) (transform.Adapter, error) {
			return transform.Batch("boom", func(context.Context, []*transform.File) ([]*transform.File, error) {
				return nil, assert.AnError
			}), nil
		})
	}))

	res, err := NewBuildService(p).Run(t.Context(), BuildRequest{Goals: []string{"scripts"}})
	require.Error(t, err)
	assert.Equal(t, BuildStatusFailed, res.Status)
	name, ok := ferrors.ContextString(err, "task")
	require.True(t, ok)
	assert.Equal(t, "scripts", name)
	assert.ErrorIs(t, err, transform.ErrTransform)
}

func TestNewProject_UnknownStepKind(t *testing.T) {
	cfg, err := config.Parse([]byte(`tasks: [{name: a, src: ["*"], steps: [{kind: uncss}]}]`))
	require.NoError(t, err)
	cfg.BaseDir = t.TempDir()
	_, err = NewProject(cfg)
	require.Error(t, err)
	assert.Equal(t, ferrors.CategoryConfig, ferrors.GetCategory(err))
}

func TestNewProject_CyclicGraph(t *testing.T) {
	cfg, err := config.Parse([]byte(`tasks: [{name: a, deps: [b]}, {name: b, deps: [a]}]`))
	require.NoError(t, err)
	cfg.BaseDir = t.TempDir()
	_, err = NewProject(cfg)
	require.ErrorIs(t, err, task.ErrCyclicDependency)
}

func TestChangedStep(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/styles/main.scss", "main")
	partial := writeFile(t, root, "src/styles/_vars.scss", "vars")
	writeFile(t, root, "src/styles/other.scss", "other")

	p := loadProject(t, root, `tasks: [{name: a}]`)
	changed, err := p.Catalog.Build(transform.StepConfig{
		Kind:    "changed",
		Options: transform.Options{"target": "working", "ext": ".css", "invalidate": "_*.scss"},
	})
	require.NoError(t, err)

	files, err := p.Load([]string{"styles/*.scss"}, nil)
	require.NoError(t, err)

	// Nothing built yet.
	out, err := changed.Transform(t.Context(), files)
	require.NoError(t, err)
	assert.Len(t, out, 3)

	future := time.Now().Add(time.Hour)
	for _, rel := range []string{".tmp/styles/main.css", ".tmp/styles/other.css"} {
		dst := writeFile(t, root, rel, "built")
		require.NoError(t, os.Chtimes(dst, future, future))
	}
	out, err = changed.Transform(t.Context(), files)
	require.NoError(t, err)
	assert.Equal(t, []string{"styles/_vars.scss"}, filePaths(out))

	// A partial newer than the outputs rebuilds everything.
	later := future.Add(time.Hour)
	require.NoError(t, os.Chtimes(partial, later, later))
	files, err = p.Load([]string{"styles/*.scss"}, nil)
	require.NoError(t, err)
	out, err = changed.Transform(t.Context(), files)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestCleanBuiltinIsIdempotent(t *testing.T) {
	root := t.TempDir()
	p := loadProject(t, root, `tasks: [{name: clean, builtin: clean}]`)
	svc := NewBuildService(p)
	for range 2 {
		_, err := svc.Run(t.Context(), BuildRequest{Goals: []string{"clean"}})
		require.NoError(t, err)
	}
}

func filePaths(files []*transform.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestBuildService_RecordsHistoryWithTrigger(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/styles/main.css", "a{}")

	store, err := history.NewSQLiteStore(filepath.Join(root, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := NewBuildService(loadProject(t, root, projectDoc)).WithHistory(store)
	res, err := svc.Run(t.Context(), BuildRequest{Goals: []string{"styles"}, Trigger: "watch"})
	require.NoError(t, err)

	rec, err := store.Get(t.Context(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "watch", rec.Trigger)
	assert.Equal(t, []string{"styles"}, rec.Goals)
	require.Len(t, rec.Tasks, 1)
	assert.Equal(t, "styles", rec.Tasks[0].Name)
}

// serviceWith builds a service over hand-written tasks instead of configured ones.
func serviceWith(t *testing.T, tasks ...task.Task) *DefaultBuildService {
	t.Helper()
	p := loadProject(t, t.TempDir(), "tasks: [{name: placeholder}]")
	reg := task.NewRegistry()
	for _, tk := range tasks {
		require.NoError(t, reg.Register(tk))
	}
	p.Registry = reg
	return NewBuildService(p)
}

func TestBuildService_SerializesConcurrentRuns(t *testing.T) {
	var active, peak atomic.Int32
	styles := task.Task{Name: "styles", Run: func(context.Context) error {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		return nil
	}}
	svc := serviceWith(t, styles)

	var wg sync.WaitGroup
	for _, trigger := range []string{"watch", "schedule", "cli"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Run(t.Context(), BuildRequest{Goals: []string{"styles"}, Trigger: trigger})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak.Load())
}

func TestBuildService_WaitingRunHonoursContext(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	svc := serviceWith(t, task.Task{Name: "hold", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}, task.Task{Name: "next"})

	first := make(chan error, 1)
	go func() {
		_, err := svc.Run(t.Context(), BuildRequest{Goals: []string{"hold"}, Trigger: "watch"})
		first <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Run(ctx, BuildRequest{Goals: []string{"next"}, Trigger: "schedule"})
	require.Error(t, err)
	assert.Equal(t, ferrors.CategoryRuntime, ferrors.GetCategory(err))

	close(release)
	require.NoError(t, <-first)
	_, err = svc.Run(t.Context(), BuildRequest{Goals: []string{"next"}, Trigger: "schedule"})
	require.NoError(t, err)
}

func TestBuildService_NextRunWaitsForTimedOutTask(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	t.Cleanup(func() { once.Do(func() { close(release) }) })
	nextStarted := make(chan struct{})
	svc := serviceWith(t,
		task.Task{Name: "stuck", Timeout: 10 * time.Millisecond, Run: func(context.Context) error {
			<-release
			return nil
		}},
		task.Task{Name: "next", Run: func(context.Context) error {
			close(nextStarted)
			return nil
		}},
	)

	_, err := svc.Run(t.Context(), BuildRequest{Goals: []string{"stuck"}, Trigger: "watch"})
	require.ErrorIs(t, err, sequencer.ErrTaskTimeout)

	second := make(chan error, 1)
	go func() {
		_, err := svc.Run(t.Context(), BuildRequest{Goals: []string{"next"}, Trigger: "watch"})
		second <- err
	}()

	select {
	case <-nextStarted:
		t.Fatal("next run started while the timed-out task was still running")
	case <-time.After(50 * time.Millisecond):
	}

	once.Do(func() { close(release) })
	select {
	case <-nextStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("next run did not start after the timed-out task returned")
	}
	require.NoError(t, <-second)
}

func TestDestStep_FailingFileWritesNothing(t *testing.T) {
	root := t.TempDir()
	p := loadProject(t, root, `
routes:
  - {match: "*.css", target: dist}
tasks:
  - name: styles
    src: ["*.css"]
`)
	dest, err := p.Catalog.Build(transform.StepConfig{Kind: "dest"})
	require.NoError(t, err)

	files := []*transform.File{
		{Path: "a.css", Contents: []byte("a{}")},
		{Path: "b.css", Contents: []byte("b{}")},
		{Path: "c.js", Contents: []byte("c()")},
	}
	_, err = dest.Transform(t.Context(), files)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(root, "dist", "a.css"))
	assert.NoFileExists(t, filepath.Join(root, "dist", "b.css"))
	if entries, err := os.ReadDir(filepath.Join(root, "dist")); err == nil {
		assert.Empty(t, entries, "staged temp files must be removed")
	}

	out, err := dest.Transform(t.Context(), files[:2])
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, "a{}", readFile(t, filepath.Join(root, "dist", "a.css")))
}
