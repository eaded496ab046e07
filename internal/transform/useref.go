package transform

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	buildStart = regexp.MustCompile(`^\s*build:(css|js)\s+(\S+)\s*$`)
	buildEnd   = regexp.MustCompile(`^\s*endbuild\s*$`)
)

// newUseref concatenates the assets between <!-- build:css out.css --> and
// <!-- endbuild --> markers into new files and replaces each block with one tag.
// The HTML file and the generated assets are emitted; assets shared by several pages
// are emitted once.
//
//	options: roots (search directories), separator (default newline)
func newUseref(env Env, opts Options) (Adapter, error) {
	roots := opts.Strings("roots")
	if len(roots) == 0 {
		roots = env.SearchRoots
	}
	sep := []byte(opts.String("separator", "\n"))
	reporter := env.reporter()

	return Batch("useref", func(_ context.Context, files []*File) ([]*File, error) {
		resolver := newAssetResolver(roots, files)
		seen := make(map[string]bool, len(files))
		out := make([]*File, 0, len(files))
		emit := func(f *File) {
			if seen[f.Path] {
				return
			}
			seen[f.Path] = true
			out = append(out, f)
		}
		for _, f := range files {
			if f.Ext() != ".html" && f.Ext() != ".htm" {
				emit(f)
				continue
			}
			page, assets, err := userefPage(resolver, reporter, sep, f)
			if err != nil {
				reporter.FileSkipped(asTransformError("useref", f.Path, err))
				continue
			}
			emit(page)
			for _, a := range assets {
				emit(a)
			}
		}
		return out, nil
	}), nil
}

type buildBlock struct {
	kind   string
	target string
	nodes  []*html.Node
}

func collectBlocks(doc *html.Node) ([]buildBlock, error) {
	var blocks []buildBlock
	var open *buildBlock
	var err error
	var visit func(parent *html.Node)
	visit = func(parent *html.Node) {
		for c := parent.FirstChild; c != nil; c = c.NextSibling {
			if err != nil {
				return
			}
			if c.Type == html.CommentNode {
				if m := buildStart.FindStringSubmatch(c.Data); m != nil {
					if open != nil {
						err = fmt.Errorf("nested build block %q inside %q", m[2], open.target)
						return
					}
					open = &buildBlock{kind: m[1], target: m[2], nodes: []*html.Node{c}}
					continue
				}
				if buildEnd.MatchString(c.Data) {
					if open == nil {
						err = fmt.Errorf("endbuild without build marker")
						return
					}
					open.nodes = append(open.nodes, c)
					blocks = append(blocks, *open)
					open = nil
					continue
				}
			}
			if open != nil {
				if open.nodes[0].Parent != c.Parent {
					err = fmt.Errorf("build block %q spans elements", open.target)
					return
				}
				open.nodes = append(open.nodes, c)
				continue
			}
			visit(c)
		}
	}
	visit(doc)
	if err == nil && open != nil {
		err = fmt.Errorf("build block %q is not closed", open.target)
	}
	return blocks, err
}

func userefPage(resolver *assetResolver, reporter Reporter, sep []byte, f *File) (*File, []*File, error) {
	doc, err := html.Parse(bytes.NewReader(f.Contents))
	if err != nil {
		return nil, nil, err
	}
	blocks, err := collectBlocks(doc)
	if err != nil {
		return nil, nil, err
	}
	if len(blocks) == 0 {
		return f, nil, nil
	}

	var assets []*File
	for _, b := range blocks {
		var buf bytes.Buffer
		parts := 0
		for _, n := range b.nodes {
			ref := ""
			switch {
			case b.kind == "css" && isStylesheet(n):
				ref, _ = attr(n, "href")
			case b.kind == "js" && n.Type == html.ElementNode && n.Data == "script":
				ref, _ = attr(n, "src")
			default:
				continue
			}
			if isRemote(ref) {
				continue
			}
			_, data, err := resolver.read(f.Path, ref)
			if err != nil {
				reporter.Diagnostic("useref", f.Path, err.Error())
				continue
			}
			if parts > 0 {
				buf.Write(sep)
			}
			buf.Write(data)
			parts++
		}

		rel, err := assetPath(f.Path, b.target)
		if err != nil {
			return nil, nil, err
		}
		asset := &File{Path: rel, Contents: buf.Bytes(), Mode: f.Mode, ModTime: f.ModTime}
		assets = append(assets, asset.WithMeta("useref", f.Path))

		parent := b.nodes[0].Parent
		parent.InsertBefore(replacementTag(b), b.nodes[0])
		for _, n := range b.nodes {
			parent.RemoveChild(n)
		}
	}

	out, err := render(doc)
	if err != nil {
		return nil, nil, err
	}
	return f.WithContents(out), assets, nil
}

func replacementTag(b buildBlock) *html.Node {
	target := strings.TrimSpace(b.target)
	if b.kind == "css" {
		return &html.Node{
			Type: html.ElementNode, Data: "link", DataAtom: atom.Link,
			Attr: []html.Attribute{{Key: "rel", Val: "stylesheet"}, {Key: "href", Val: target}},
		}
	}
	return &html.Node{
		Type: html.ElementNode, Data: "script", DataAtom: atom.Script,
		Attr: []html.Attribute{{Key: "src", Val: target}},
	}
}
