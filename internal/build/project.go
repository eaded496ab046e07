package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/router"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
	"git.home.luguber.info/inful/assetbuilder/internal/transform"
	"git.home.luguber.info/inful/assetbuilder/internal/workspace"
)

// Project is a configuration compiled into a task registry.
type Project struct {
	Config    *config.Config
	Registry  *task.Registry
	Workspace *workspace.Manager
	Router    *router.Router
	Catalog   *transform.Catalog
	SourceDir string
}

// ProjectOption customizes NewProject.
type ProjectOption func(*projectOptions)

type projectOptions struct {
	reporter transform.Reporter
	register func(*transform.Catalog)
}

// WithTransformReporter sets where adapters report skipped files and diagnostics.
func WithTransformReporter(r transform.Reporter) ProjectOption {
	return func(o *projectOptions) { o.reporter = r }
}

// WithAdapters registers extra step kinds before tasks are compiled.
func WithAdapters(register func(*transform.Catalog)) ProjectOption {
	return func(o *projectOptions) { o.register = register }
}

// NewProject compiles cfg. Configuration problems (unknown step kinds, bad routes,
// cyclic task graphs) are reported as config or graph errors.
func NewProject(cfg *config.Config, opts ...ProjectOption) (*Project, error) {
	o := projectOptions{reporter: transform.NoopReporter{}}
	for _, opt := range opts {
		opt(&o)
	}

	ws, err := workspace.NewManager(cfg.Resolve("."), cfg.Paths.Working, cfg.Paths.Dist, cfg.Paths.Preserve)
	if err != nil {
		return nil, err
	}
	rt, err := router.New(routeRules(cfg.Routes), router.Dirs{Working: ws.WorkingDir(), Dist: ws.DistDir()})
	if err != nil {
		return nil, err
	}

	p := &Project{
		Config:    cfg,
		Registry:  task.NewRegistry(),
		Workspace: ws,
		Router:    rt,
		SourceDir: cfg.Resolve(cfg.Paths.Source),
	}
	p.Catalog = transform.NewCatalog(transform.Env{
		Reporter:    o.reporter,
		SearchRoots: []string{ws.WorkingDir(), p.SourceDir, cfg.Resolve(".")},
	})
	p.Catalog.Register("dest", p.newDest)
	p.Catalog.Register("changed", p.newChanged)
	if o.register != nil {
		o.register(p.Catalog)
	}

	for _, tc := range cfg.Tasks {
		run, err := p.compile(tc)
		if err != nil {
			return nil, err
		}
		err = p.Registry.Register(task.Task{
			Name:        tc.Name,
			Description: tc.Description,
			Deps:        tc.Deps,
			After:       tc.After,
			Run:         run,
			Timeout:     tc.TimeoutDuration(),
		})
		if err != nil {
			return nil, err
		}
	}
	if err := p.Registry.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// routeRules converts configured routes. Without any routes everything goes to dist
// under its source-relative path.
func routeRules(routes []config.RouteConfig) []router.Rule {
	if len(routes) == 0 {
		return []router.Rule{{Match: "**", Target: router.TargetDist}}
	}
	rules := make([]router.Rule, 0, len(routes))
	for _, r := range routes {
		rules = append(rules, router.Rule{
			Match:  r.Match,
			Target: router.Target(r.Target),
			Strip:  r.Strip,
			Prefix: r.Prefix,
			Ext:    r.Ext,
		})
	}
	return rules
}

// compile builds the work function of one configured task.
func (p *Project) compile(tc config.TaskConfig) (task.Func, error) {
	switch {
	case tc.Builtin == "clean":
		return func(context.Context) error { return p.Workspace.Clean() }, nil
	case tc.Builtin != "":
		return nil, ferrors.ConfigError(fmt.Sprintf("unknown builtin %q", tc.Builtin)).WithContext("task", tc.Name).Build()
	case len(tc.Src) == 0:
		// Alias task: groups its dependencies.
		return func(context.Context) error { return nil }, nil
	}

	steps := tc.Steps
	if len(steps) == 0 {
		steps = []config.StepConfig{{Kind: "dest"}}
	}
	adapters := make([]transform.Adapter, 0, len(steps))
	for i, s := range steps {
		a, err := p.Catalog.Build(transform.StepConfig{Kind: s.Kind, Match: s.Match, Options: s.Options})
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, fmt.Sprintf("task %q step %d", tc.Name, i)).
				WithContext("task", tc.Name).
				Build()
		}
		adapters = append(adapters, a)
	}

	src := slices.Clone(tc.Src)
	exclude := slices.Clone(tc.Exclude)
	name := tc.Name
	return func(ctx context.Context) error {
		files, err := p.Load(src, exclude)
		if err != nil {
			return err
		}
		slog.Debug("Loaded task inputs", logfields.Task(name), logfields.Count(len(files)))
		for _, a := range adapters {
			if err := ctx.Err(); err != nil {
				return err
			}
			files, err = transform.Apply(ctx, a, files)
			if err != nil {
				return err
			}
		}
		return nil
	}, nil
}

// Load reads the source files selected by include and exclude.
func (p *Project) Load(include, exclude []string) ([]*transform.File, error) {
	paths, err := fileset.Select(p.SourceDir, include, exclude)
	if err != nil {
		return nil, err
	}
	files := make([]*transform.File, 0, len(paths))
	for _, rel := range paths {
		abs := filepath.Join(p.SourceDir, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if err != nil {
			return nil, ferrors.FileSystemError("stat source file").WithCause(err).WithContext("path", rel).Build()
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, ferrors.FileSystemError("read source file").WithCause(err).WithContext("path", rel).Build()
		}
		files = append(files, &transform.File{
			Path:     rel,
			Contents: data,
			Mode:     info.Mode().Perm(),
			ModTime:  info.ModTime(),
			Meta:     map[string]string{transform.MetaSource: abs},
		})
	}
	return files, nil
}
