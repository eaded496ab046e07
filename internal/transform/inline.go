package transform

import (
	"bytes"
	"context"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// newInline replaces <script src inline> and <link rel=stylesheet inline> with the
// referenced file's contents.
//
//	options: roots (search directories, default the build's search roots)
func newInline(env Env, opts Options) (Adapter, error) {
	roots := opts.Strings("roots")
	if len(roots) == 0 {
		roots = env.SearchRoots
	}
	reporter := env.reporter()

	return Batch("inline", func(_ context.Context, files []*File) ([]*File, error) {
		resolver := newAssetResolver(roots, files)
		out := make([]*File, 0, len(files))
		for _, f := range files {
			if f.Ext() != ".html" && f.Ext() != ".htm" {
				out = append(out, f)
				continue
			}
			res, err := inlineAssets(resolver, f)
			if err != nil {
				reporter.FileSkipped(asTransformError("inline", f.Path, err))
				continue
			}
			out = append(out, res)
		}
		return out, nil
	}), nil
}

func inlineAssets(resolver *assetResolver, f *File) (*File, error) {
	doc, err := html.Parse(bytes.NewReader(f.Contents))
	if err != nil {
		return nil, err
	}

	var firstErr error
	changed := false
	walk(doc, func(n *html.Node) {
		if firstErr != nil || n.Type != html.ElementNode {
			return
		}
		if _, ok := attr(n, "inline"); !ok {
			return
		}
		switch {
		case n.Data == "script":
			src, _ := attr(n, "src")
			if isRemote(src) {
				return
			}
			_, data, err := resolver.read(f.Path, src)
			if err != nil {
				firstErr = err
				return
			}
			n.Attr = withoutAttrs(n.Attr, "src", "inline")
			for c := n.FirstChild; c != nil; c = n.FirstChild {
				n.RemoveChild(c)
			}
			n.AppendChild(&html.Node{Type: html.TextNode, Data: string(data)})
			changed = true
		case isStylesheet(n):
			href, _ := attr(n, "href")
			if isRemote(href) {
				return
			}
			_, data, err := resolver.read(f.Path, href)
			if err != nil {
				firstErr = err
				return
			}
			style := &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
			style.AppendChild(&html.Node{Type: html.TextNode, Data: string(data)})
			n.Parent.InsertBefore(style, n)
			n.Parent.RemoveChild(n)
			changed = true
		}
	})
	if firstErr != nil {
		return nil, firstErr
	}
	if !changed {
		return f, nil
	}
	out, err := render(doc)
	if err != nil {
		return nil, err
	}
	return f.WithContents(out), nil
}
