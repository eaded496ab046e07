package transform

import (
	"context"
)

// newSize reports file count and total size of the batch, then passes it through.
//
//	options: title
func newSize(env Env, opts Options) (Adapter, error) {
	title := opts.String("title", "")
	reporter := env.reporter()
	return Batch("size", func(_ context.Context, files []*File) ([]*File, error) {
		var total int64
		for _, f := range files {
			total += int64(f.Size())
		}
		reporter.Summary(Summary{Adapter: "size", Title: title, Files: len(files), Bytes: total})
		return files, nil
	}), nil
}
