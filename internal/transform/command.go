package transform

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// runCommand pipes stdin through an external tool and returns its stdout. A non-zero
// exit yields a *TransformError carrying the tool's stderr as diagnostic.
func runCommand(ctx context.Context, adapter, path, name string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = strings.TrimSpace(stdout.String())
		}
		return nil, NewTransformError(adapter, path, fmt.Errorf("%s: %w", name, err), diag)
	}
	return stdout.Bytes(), nil
}

// lookTool fails the whole step up front when the binary is missing instead of
// reporting the same error for every file.
func lookTool(adapter, name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return NewTransformError(adapter, "", fmt.Errorf("%s not found in PATH: %w", name, err), "")
	}
	return nil
}

type toolAdapter struct {
	name  string
	tool  string
	inner Adapter
}

func (t *toolAdapter) Name() string { return t.name }

func (t *toolAdapter) Transform(ctx context.Context, files []*File) ([]*File, error) {
	if len(files) == 0 {
		return files, nil
	}
	if err := lookTool(t.name, t.tool); err != nil {
		return nil, err
	}
	return t.inner.Transform(ctx, files)
}

// expandArgs substitutes {path} in args with the file's source-relative path.
func expandArgs(args []string, f *File) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strings.ReplaceAll(a, "{path}", f.Path)
	}
	return out
}
