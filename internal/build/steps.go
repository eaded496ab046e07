package build

import (
	"context"
	"os"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/router"
	"git.home.luguber.info/inful/assetbuilder/internal/transform"
)

func (p *Project) target(opts transform.Options) (router.Target, error) {
	s := opts.String("target", "")
	if s == "" {
		return "", nil
	}
	return router.ParseTarget(s)
}

func (p *Project) resolve(path string, target router.Target) (router.OutputTarget, error) {
	if target != "" {
		return p.Router.RouteTo(path, target)
	}
	return p.Router.Route(path)
}

// newDest persists every file at its routed destination and passes the batch on, so
// later steps can keep transforming (checkpoint to working, minify, write to dist).
// All files are staged before any is moved into place, so a failing file leaves the
// destination as it was.
//
//	options: target (working|dist, overrides the route's target)
func (p *Project) newDest(_ transform.Env, opts transform.Options) (transform.Adapter, error) {
	target, err := p.target(opts)
	if err != nil {
		return nil, err
	}
	return transform.Batch("dest", func(ctx context.Context, files []*transform.File) ([]*transform.File, error) {
		var staged fileset.Batch
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				staged.Discard()
				return nil, err
			}
			out, err := p.resolve(f.Path, target)
			if err != nil {
				staged.Discard()
				return nil, transform.NewTransformError("dest", f.Path, err, "")
			}
			if err := staged.Add(out.Path, f.Contents, f.Mode); err != nil {
				staged.Discard()
				return nil, transform.NewTransformError("dest", f.Path, err, "")
			}
		}
		if err := staged.Commit(); err != nil {
			return nil, transform.NewTransformError("dest", "", err, "")
		}
		return files, nil
	}), nil
}

// newChanged drops files whose destination is at least as new as the source. When a
// file matching invalidate (a shared partial, say) changed, the whole batch is kept.
//
//	options: target, ext (destination extension), invalidate (pattern)
func (p *Project) newChanged(_ transform.Env, opts transform.Options) (transform.Adapter, error) {
	target, err := p.target(opts)
	if err != nil {
		return nil, err
	}
	ext := opts.String("ext", "")
	invalidate := opts.String("invalidate", "")

	return transform.Batch("changed", func(_ context.Context, files []*transform.File) ([]*transform.File, error) {
		fresh := make([]bool, len(files))
		var oldest time.Time
		for i, f := range files {
			if invalidate != "" && fileset.MatchName(invalidate, f.Path) {
				continue
			}
			probe := f
			if ext != "" {
				probe = f.WithExt(ext)
			}
			dst, err := p.resolve(probe.Path, target)
			if err != nil {
				continue
			}
			info, err := os.Stat(dst.Path)
			if err != nil || info.ModTime().Before(f.ModTime) {
				continue
			}
			fresh[i] = true
			if oldest.IsZero() || info.ModTime().Before(oldest) {
				oldest = info.ModTime()
			}
		}

		for _, f := range files {
			if invalidate != "" && fileset.MatchName(invalidate, f.Path) &&
				(oldest.IsZero() || f.ModTime.After(oldest)) {
				return files, nil
			}
		}

		out := make([]*transform.File, 0, len(files))
		for i, f := range files {
			if !fresh[i] {
				out = append(out, f)
			}
		}
		return out, nil
	}), nil
}
