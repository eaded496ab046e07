package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, p string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func TestManager_CleanPreservesEntries(t *testing.T) {
	root := t.TempDir()
	mgr, err := NewManager(root, ".tmp", "dist", []string{".git"})
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}

	write(t, filepath.Join(root, ".tmp", "styles", "main.css"))
	write(t, filepath.Join(root, "dist", "index.html"))
	write(t, filepath.Join(root, "dist", "views", "js", "main.js"))
	write(t, filepath.Join(root, "dist", ".git", "HEAD"))
	write(t, filepath.Join(root, "src", "index.html"))

	if err := mgr.Clean(); err != nil {
		t.Fatalf("Clean() failed: %v", err)
	}

	if exists(filepath.Join(root, ".tmp")) {
		t.Error("working directory should be removed")
	}
	if exists(filepath.Join(root, "dist", "index.html")) || exists(filepath.Join(root, "dist", "views")) {
		t.Error("dist contents should be removed")
	}
	if !exists(filepath.Join(root, "dist", ".git", "HEAD")) {
		t.Error("preserved entry was removed")
	}
	if !exists(filepath.Join(root, "src", "index.html")) {
		t.Error("source tree must never be touched")
	}
}

func TestManager_CleanIsIdempotent(t *testing.T) {
	root := t.TempDir()
	mgr, err := NewManager(root, ".tmp", "dist", nil)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}

	for i := range 2 {
		if err := mgr.Clean(); err != nil {
			t.Fatalf("Clean() #%d failed: %v", i+1, err)
		}
	}
}

func TestManager_CreateMakesDirectories(t *testing.T) {
	root := t.TempDir()
	mgr, err := NewManager(root, ".tmp", "out/dist", nil)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if !exists(mgr.WorkingDir()) || !exists(mgr.DistDir()) {
		t.Fatal("output directories were not created")
	}
	if mgr.DistDir() != filepath.Join(root, "out", "dist") {
		t.Errorf("unexpected dist dir %s", mgr.DistDir())
	}
}

func TestNewManager_RejectsDirectoriesOutsideRoot(t *testing.T) {
	root := t.TempDir()
	cases := map[string][2]string{
		"parent":       {"../tmp", "dist"},
		"root itself":  {".tmp", "."},
		"absolute out": {".tmp", filepath.Dir(root)},
		"empty":        {"", "dist"},
	}
	for name, dirs := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewManager(root, dirs[0], dirs[1], nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
