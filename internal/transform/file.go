package transform

import (
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"
	"time"
)

// MetaSource is the Meta key holding the absolute path a file was read from.
const MetaSource = "source"

// File is an in-memory file record flowing through a task's steps.
type File struct {
	// Path is slash separated and relative to the task's source root.
	Path     string
	Contents []byte
	Mode     fs.FileMode
	ModTime  time.Time
	// Meta carries adapter annotations such as the originating source path.
	Meta map[string]string
}

// NewFile returns a file record with a copy of contents.
func NewFile(p string, contents []byte) *File {
	return &File{Path: p, Contents: slices.Clone(contents), Mode: 0o644, ModTime: time.Now()}
}

// Clone returns a deep copy.
func (f *File) Clone() *File {
	if f == nil {
		return nil
	}
	c := *f
	c.Contents = slices.Clone(f.Contents)
	c.Meta = maps.Clone(f.Meta)
	return &c
}

// WithContents returns a copy carrying contents.
func (f *File) WithContents(contents []byte) *File {
	c := f.Clone()
	c.Contents = contents
	return c
}

// WithPath returns a copy relocated to p.
func (f *File) WithPath(p string) *File {
	c := f.Clone()
	c.Path = p
	return c
}

// WithExt returns a copy with its extension replaced by ext (including the dot).
func (f *File) WithExt(ext string) *File {
	return f.WithPath(strings.TrimSuffix(f.Path, path.Ext(f.Path)) + ext)
}

// WithMeta returns a copy with key set.
func (f *File) WithMeta(key, value string) *File {
	c := f.Clone()
	if c.Meta == nil {
		c.Meta = map[string]string{}
	}
	c.Meta[key] = value
	return c
}

// Ext returns the lower-cased extension including the dot.
func (f *File) Ext() string { return strings.ToLower(path.Ext(f.Path)) }

// Base returns the last path element.
func (f *File) Base() string { return path.Base(f.Path) }

// Size returns the content length in bytes.
func (f *File) Size() int { return len(f.Contents) }
