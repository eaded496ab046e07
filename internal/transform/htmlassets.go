package transform

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// assetResolver finds the contents of a local asset referenced from an HTML file.
// Files of the current batch win over files on disk.
type assetResolver struct {
	roots []string
	batch map[string]*File
}

func newAssetResolver(roots []string, files []*File) *assetResolver {
	r := &assetResolver{roots: roots, batch: make(map[string]*File, len(files))}
	for _, f := range files {
		r.batch[f.Path] = f
	}
	return r
}

// isRemote reports whether ref points outside the project.
func isRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return ref == "" ||
		strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "//") ||
		strings.HasPrefix(lower, "data:")
}

// assetPath turns ref, as written in the HTML file at htmlPath, into a slash path
// relative to the roots.
func assetPath(htmlPath, ref string) (string, error) {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	var rel string
	if strings.HasPrefix(ref, "/") {
		rel = path.Clean(strings.TrimPrefix(ref, "/"))
	} else {
		rel = path.Join(path.Dir(htmlPath), ref)
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("asset %q escapes the project root", ref)
	}
	return rel, nil
}

func (r *assetResolver) read(htmlPath, ref string) (string, []byte, error) {
	rel, err := assetPath(htmlPath, ref)
	if err != nil {
		return "", nil, err
	}
	if f, ok := r.batch[rel]; ok {
		return rel, f.Contents, nil
	}
	for _, root := range r.roots {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err == nil {
			return rel, data, nil
		}
	}
	return rel, nil, fmt.Errorf("asset %q not found", rel)
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func withoutAttrs(attrs []html.Attribute, keys ...string) []html.Attribute {
	out := make([]html.Attribute, 0, len(attrs))
outer:
	for _, a := range attrs {
		for _, k := range keys {
			if a.Key == k {
				continue outer
			}
		}
		out = append(out, a)
	}
	return out
}

func isStylesheet(n *html.Node) bool {
	rel, _ := attr(n, "rel")
	return n.Type == html.ElementNode && n.Data == "link" && strings.EqualFold(rel, "stylesheet")
}

func walk(n *html.Node, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		fn(c)
		walk(c, fn)
		c = next
	}
}

func render(doc *html.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
