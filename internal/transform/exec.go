package transform

import (
	"context"
)

// newExec pipes each file through an arbitrary command (autoprefixer, postcss, uglifyjs).
//
//	options: command (required), args ({path} expands to the file path), ext
func newExec(env Env, opts Options) (Adapter, error) {
	command, err := requireOption("exec", opts, "command")
	if err != nil {
		return nil, err
	}
	args := opts.Strings("args")
	ext := opts.String("ext", "")
	name := opts.String("name", "exec:"+command)

	fn := func(ctx context.Context, f *File) ([]*File, error) {
		out, err := runCommand(ctx, name, f.Path, command, expandArgs(args, f), f.Contents)
		if err != nil {
			return nil, err
		}
		res := f.WithContents(out)
		if ext != "" {
			res = res.WithExt(ext)
		}
		return []*File{res}, nil
	}
	return &toolAdapter{name: name, tool: command, inner: PerFile(name, fn, WithReporter(env.reporter()))}, nil
}
