package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// Source produces file events until ctx is done.
type Source interface {
	Run(ctx context.Context, out chan<- FileEvent) error
}

// FSSource watches directory trees with fsnotify. Directories created after
// start are added as they appear.
type FSSource struct {
	roots []string
}

// NewFSSource watches each root recursively.
func NewFSSource(roots ...string) *FSSource {
	return &FSSource{roots: roots}
}

func (s *FSSource) Run(ctx context.Context, out chan<- FileEvent) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, root := range s.roots {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("watch root %s: %w", root, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("watch root %s is not a directory", root)
		}
		addDirsRecursive(watcher, root)
	}
	slog.Info("Watching for changes", slog.Any("roots", s.roots))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			fe, keep := s.translate(watcher, ev)
			if !keep {
				continue
			}
			select {
			case out <- fe:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (s *FSSource) translate(w *fsnotify.Watcher, ev fsnotify.Event) (FileEvent, bool) {
	if shouldIgnore(ev.Name) {
		return FileEvent{}, false
	}
	fe := FileEvent{Path: ev.Name, At: time.Now()}
	switch {
	case ev.Has(fsnotify.Create):
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			addDirsRecursive(w, ev.Name)
			return FileEvent{}, false
		}
		fe.Kind = Created
	case ev.Has(fsnotify.Write):
		fe.Kind = Modified
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		fe.Kind = Deleted
	default:
		return FileEvent{}, false
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	return fe, true
}

func addDirsRecursive(w *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			slog.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnore reports hidden files and editor swap or backup files.
func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"):
		return true
	case strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"), strings.HasSuffix(base, ".tmp"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	}
	return false
}
