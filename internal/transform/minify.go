package transform

import (
	"context"
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"
	"github.com/tdewolff/minify/v2/xml"
)

var mediaTypes = map[string]string{
	".css":  "text/css",
	".js":   "application/javascript",
	".mjs":  "application/javascript",
	".html": "text/html",
	".htm":  "text/html",
	".svg":  "image/svg+xml",
	".json": "application/json",
	".xml":  "text/xml",
}

func newMinifier(opts Options) *minify.M {
	m := minify.New()
	m.Add("text/css", &css.Minifier{})
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
		KeepComments:     opts.Bool("keep_comments", false),
	})
	m.Add("image/svg+xml", &svg.Minifier{})
	m.AddRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), &js.Minifier{})
	m.AddRegexp(regexp.MustCompile(`[/+]json$`), &json.Minifier{})
	m.AddRegexp(regexp.MustCompile(`[/+]xml$`), &xml.Minifier{})
	return m
}

// newMinify minifies css, js, html, svg, json and xml by extension. Other files pass
// through untouched.
//
//	options: keep_comments
func newMinify(env Env, opts Options) (Adapter, error) {
	m := newMinifier(opts)
	fn := func(_ context.Context, f *File) ([]*File, error) {
		mt, ok := mediaTypes[f.Ext()]
		if !ok {
			return []*File{f}, nil
		}
		out, err := m.Bytes(mt, f.Contents)
		if err != nil {
			return nil, NewTransformError("minify", f.Path, err, "")
		}
		return []*File{f.WithContents(out)}, nil
	}
	return PerFile("minify", fn, WithReporter(env.reporter())), nil
}
