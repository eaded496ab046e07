package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// Manager owns the working and dist directories of one project.
type Manager struct {
	root     string
	working  string
	dist     string
	preserve []string
}

// NewManager resolves working and dist against root. Relative preserve entries are
// names below dist that Clean leaves in place.
func NewManager(root, working, dist string, preserve []string) (*Manager, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, ferrors.FileSystemError("resolve project root").WithCause(err).WithContext("path", root).Build()
	}
	m := &Manager{root: absRoot, preserve: preserve}
	if m.working, err = m.within(working); err != nil {
		return nil, err
	}
	if m.dist, err = m.within(dist); err != nil {
		return nil, err
	}
	return m, nil
}

// within resolves p below the root and refuses the root itself or anything outside it.
func (m *Manager) within(p string) (string, error) {
	if p == "" {
		return "", ferrors.ConfigError("output directory not configured").Build()
	}
	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(m.root, p)
	}
	abs = filepath.Clean(abs)
	rel, err := filepath.Rel(m.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ferrors.ConfigError(fmt.Sprintf("directory %q must be inside the project root %q", p, m.root)).
			WithContext("path", p).
			Build()
	}
	return abs, nil
}

// Root returns the project root.
func (m *Manager) Root() string { return m.root }

// WorkingDir returns the absolute working directory.
func (m *Manager) WorkingDir() string { return m.working }

// DistDir returns the absolute distribution directory.
func (m *Manager) DistDir() string { return m.dist }

// Create ensures both output directories exist.
func (m *Manager) Create() error {
	for _, dir := range []string{m.working, m.dist} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return ferrors.FileSystemError("create output directory").WithCause(err).WithContext("path", dir).Build()
		}
	}
	slog.Debug("Output directories ready", slog.String("working", m.working), slog.String("dist", m.dist))
	return nil
}

// Clean deletes the working directory and the contents of dist except preserved
// entries. Missing directories are fine, so Clean is idempotent.
func (m *Manager) Clean() error {
	if err := m.removeAll(m.working); err != nil {
		return err
	}
	removed, err := m.emptyDir(m.dist)
	if err != nil {
		return err
	}
	slog.Info("Cleaned output directories",
		logfields.Path(m.working),
		slog.String("dist", m.dist),
		logfields.Count(removed))
	return nil
}

func (m *Manager) removeAll(dir string) error {
	if _, err := m.within(dir); err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return ferrors.FileSystemError("remove directory").WithCause(err).WithContext("path", dir).Build()
	}
	return nil
}

func (m *Manager) emptyDir(dir string) (int, error) {
	if _, err := m.within(dir); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, ferrors.FileSystemError("read directory").WithCause(err).WithContext("path", dir).Build()
	}
	removed := 0
	for _, e := range entries {
		if m.preserved(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			return removed, ferrors.FileSystemError("remove entry").WithCause(err).WithContext("path", p).Build()
		}
		removed++
	}
	return removed, nil
}

func (m *Manager) preserved(name string) bool {
	for _, p := range m.preserve {
		if strings.Trim(filepath.ToSlash(p), "/") == name {
			return true
		}
	}
	return false
}
