package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// newLint runs a linter over every file without changing it. Findings are reported as
// diagnostics; with fail set, any finding fails the step after all files are checked.
//
//	options: command (default jshint), args (default --filename {path} -), fail
func newLint(env Env, opts Options) (Adapter, error) {
	command := opts.String("command", "jshint")
	args := opts.Strings("args")
	if len(args) == 0 {
		args = []string{"--filename", "{path}", "-"}
	}
	fail := opts.Bool("fail", false)
	reporter := env.reporter()

	fn := func(ctx context.Context, files []*File) ([]*File, error) {
		if len(files) == 0 {
			return files, nil
		}
		if err := lookTool("lint", command); err != nil {
			return nil, err
		}
		var failed []string
		for _, f := range files {
			_, err := runCommand(ctx, "lint", f.Path, command, expandArgs(args, f), f.Contents)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var te *TransformError
			msg := err.Error()
			if errors.As(err, &te) && te.Diagnostic != "" {
				msg = te.Diagnostic
			}
			reporter.Diagnostic("lint", f.Path, msg)
			failed = append(failed, f.Path)
		}
		if fail && len(failed) > 0 {
			return nil, NewTransformError("lint", "", fmt.Errorf("%d file(s) with findings", len(failed)), strings.Join(failed, "\n"))
		}
		return files, nil
	}
	return Batch("lint", fn), nil
}
