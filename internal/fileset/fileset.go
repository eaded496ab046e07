// Package fileset selects source files by glob and persists build outputs.
//
// Patterns use doublestar syntax on slash-separated paths relative to a root:
// `**` crosses directories, `{a,b}` alternates.
package fileset

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Match reports whether the slash path rel matches pattern. Invalid patterns never match.
func Match(pattern, rel string) bool {
	if pattern == "" {
		return false
	}
	ok, err := doublestar.Match(pattern, strings.TrimPrefix(filepath.ToSlash(rel), "./"))
	return err == nil && ok
}

// MatchName is Match, except that a pattern without a slash is tested against the base
// name only, so `*.css` selects stylesheets in any directory.
func MatchName(pattern, rel string) bool {
	if !strings.Contains(pattern, "/") {
		return Match(pattern, path.Base(filepath.ToSlash(rel)))
	}
	return Match(pattern, rel)
}

// MatchAny reports whether rel matches at least one of patterns.
func MatchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if Match(p, rel) {
			return true
		}
	}
	return false
}

// ValidatePattern returns a validation error when pattern is not a usable glob.
func ValidatePattern(pattern string) error {
	if pattern == "" || !doublestar.ValidatePattern(pattern) {
		return ferrors.ValidationError(fmt.Sprintf("invalid glob pattern %q", pattern)).
			WithContext("pattern", pattern).
			Build()
	}
	return nil
}

// Select walks root and returns the sorted slash paths of regular files matching
// any include pattern and no exclude pattern. A missing root yields no files.
func Select(root string, include, exclude []string) ([]string, error) {
	if len(include) == 0 {
		return nil, nil
	}
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ferrors.FileSystemError("stat source root").WithCause(err).WithContext("path", root).Build()
	}
	if !info.IsDir() {
		return nil, ferrors.FileSystemError("source root is not a directory").WithContext("path", root).Build()
	}

	var out []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if MatchAny(include, rel) && !MatchAny(exclude, rel) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, ferrors.FileSystemError("walk source root").WithCause(err).WithContext("path", root).Build()
	}
	sort.Strings(out)
	return out, nil
}

// Write persists data at dst, creating parent directories. The file is written to a
// sibling temp file and renamed so readers never observe a partial output.
func Write(dst string, data []byte, mode fs.FileMode) error {
	var b Batch
	if err := b.Add(dst, data, mode); err != nil {
		b.Discard()
		return err
	}
	return b.Commit()
}

// Batch stages several outputs as sibling temp files and moves them into place
// together. Nothing reaches a destination until every file has been staged; a
// failed rename during Commit can still leave the earlier renames in place.
type Batch struct {
	staged []stagedFile
}

type stagedFile struct {
	tmp, dst string
}

// Add stages data for dst.
func (b *Batch) Add(dst string, data []byte, mode fs.FileMode) error {
	if mode == 0 {
		mode = 0o644
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return ferrors.FileSystemError("create output directory").WithCause(err).WithContext("path", dst).Build()
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return ferrors.FileSystemError("create temp output").WithCause(err).WithContext("path", dst).Build()
	}
	tmpName := tmp.Name()
	fail := func(msg string, cause error) error {
		_ = os.Remove(tmpName)
		return ferrors.FileSystemError(msg).WithCause(cause).WithContext("path", dst).Build()
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fail("write output", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("close output", err)
	}
	if err := os.Chmod(tmpName, mode.Perm()); err != nil {
		return fail("chmod output", err)
	}
	b.staged = append(b.staged, stagedFile{tmp: tmpName, dst: dst})
	return nil
}

// Len returns the number of staged files.
func (b *Batch) Len() int { return len(b.staged) }

// Commit renames every staged file onto its destination. Files not yet renamed when
// a rename fails are removed.
func (b *Batch) Commit() error {
	for i, s := range b.staged {
		if err := os.Rename(s.tmp, s.dst); err != nil {
			b.staged = b.staged[i:]
			b.Discard()
			return ferrors.FileSystemError("rename output").WithCause(err).WithContext("path", s.dst).Build()
		}
	}
	b.staged = nil
	return nil
}

// Discard removes every staged temp file.
func (b *Batch) Discard() {
	for _, s := range b.staged {
		_ = os.Remove(s.tmp)
	}
	b.staged = nil
}
