package transform

import (
	"context"
	"path"
	"path/filepath"
	"strings"
)

// newSass compiles .scss files through the dart-sass CLI reading stdin. Partials are
// dropped and plain .css passes through. Each include path becomes a --load-path.
//
//	options: command (default sass), include_paths, style
func newSass(env Env, opts Options) (Adapter, error) {
	command := opts.String("command", "sass")
	args := []string{"--stdin", "--no-source-map"}
	for _, p := range opts.Strings("include_paths") {
		args = append(args, "--load-path="+p)
	}
	if style := opts.String("style", ""); style != "" {
		args = append(args, "--style="+style)
	}

	fn := func(ctx context.Context, f *File) ([]*File, error) {
		switch {
		case strings.HasPrefix(f.Base(), "_"):
			return nil, nil
		case f.Ext() == ".css":
			return []*File{f}, nil
		case f.Ext() != ".scss" && f.Ext() != ".sass":
			return []*File{f}, nil
		}
		loadDir := path.Dir(f.Path)
		if src := f.Meta[MetaSource]; src != "" {
			loadDir = filepath.Dir(src)
		}
		fileArgs := append(args[:len(args):len(args)], "--load-path="+loadDir)
		if f.Ext() == ".sass" {
			fileArgs = append(fileArgs, "--indented")
		}
		out, err := runCommand(ctx, "sass", f.Path, command, fileArgs, f.Contents)
		if err != nil {
			return nil, err
		}
		return []*File{f.WithContents(out).WithExt(".css")}, nil
	}
	return &sassAdapter{toolAdapter{name: "sass", tool: command, inner: PerFile("sass", fn, WithReporter(env.reporter()))}}, nil
}

type sassAdapter struct{ toolAdapter }

// Transform only requires the compiler when there is something to compile.
func (s *sassAdapter) Transform(ctx context.Context, files []*File) ([]*File, error) {
	for _, f := range files {
		if (f.Ext() == ".scss" || f.Ext() == ".sass") && !strings.HasPrefix(f.Base(), "_") {
			return s.toolAdapter.Transform(ctx, files)
		}
	}
	return s.inner.Transform(ctx, files)
}
