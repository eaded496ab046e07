package transform

import (
	"bytes"
	"context"
	"time"
)

// newConcat joins the batch, in order, into a single file.
//
//	options: name (required output path), separator (default newline)
func newConcat(_ Env, opts Options) (Adapter, error) {
	name, err := requireOption("concat", opts, "name")
	if err != nil {
		return nil, err
	}
	sep := []byte(opts.String("separator", "\n"))

	return Batch("concat", func(_ context.Context, files []*File) ([]*File, error) {
		if len(files) == 0 {
			return nil, nil
		}
		var buf bytes.Buffer
		var newest time.Time
		for i, f := range files {
			if i > 0 {
				buf.Write(sep)
			}
			buf.Write(f.Contents)
			if f.ModTime.After(newest) {
				newest = f.ModTime
			}
		}
		out := &File{Path: name, Contents: buf.Bytes(), Mode: files[0].Mode, ModTime: newest}
		return []*File{out}, nil
	}), nil
}
