package transform

import (
	"bytes"
	"context"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// newMarkdown renders .md files to .html fragments with goldmark (GFM enabled).
//
//	options: unsafe (allow raw HTML)
func newMarkdown(env Env, opts Options) (Adapter, error) {
	rendererOpts := []goldmark.Option{goldmark.WithExtensions(extension.GFM)}
	if opts.Bool("unsafe", false) {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	md := goldmark.New(rendererOpts...)

	fn := func(_ context.Context, f *File) ([]*File, error) {
		if f.Ext() != ".md" && f.Ext() != ".markdown" {
			return []*File{f}, nil
		}
		var buf bytes.Buffer
		if err := md.Convert(f.Contents, &buf); err != nil {
			return nil, NewTransformError("markdown", f.Path, err, "")
		}
		return []*File{f.WithContents(buf.Bytes()).WithExt(".html")}, nil
	}
	return PerFile("markdown", fn, WithReporter(env.reporter())), nil
}
