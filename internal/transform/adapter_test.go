package transform

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

type captureReporter struct {
	mu          sync.Mutex
	skipped     []*TransformError
	diagnostics []string
	summaries   []Summary
}

func (c *captureReporter) FileSkipped(err *TransformError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipped = append(c.skipped, err)
}

func (c *captureReporter) Diagnostic(_, path, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diagnostics = append(c.diagnostics, path+": "+message)
}

func (c *captureReporter) Summary(s Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries = append(c.summaries, s)
}

func files(paths ...string) []*File {
	out := make([]*File, 0, len(paths))
	for _, p := range paths {
		out = append(out, NewFile(p, []byte(p)))
	}
	return out
}

func paths(fs []*File) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Path)
	}
	return out
}

func upper(_ context.Context, f *File) ([]*File, error) {
	return []*File{f.WithContents([]byte(strings.ToUpper(string(f.Contents))))}, nil
}

func TestPerFile_SkipsFailingFile(t *testing.T) {
	rep := &captureReporter{}
	a := PerFile("upper", func(ctx context.Context, f *File) ([]*File, error) {
		if f.Path == "bad.scss" {
			return nil, errors.New("syntax error")
		}
		return upper(ctx, f)
	}, WithReporter(rep))

	out, err := a.Transform(t.Context(), files("a.scss", "bad.scss", "b.scss"))
	require.NoError(t, err)
	require.Equal(t, []string{"a.scss", "b.scss"}, paths(out))
	require.Equal(t, "A.SCSS", string(out[0].Contents))

	require.Len(t, rep.skipped, 1)
	assert.Equal(t, "upper", rep.skipped[0].Adapter)
	assert.Equal(t, "bad.scss", rep.skipped[0].Path)
	assert.ErrorIs(t, rep.skipped[0], ErrTransform)
}

func TestPerFile_DoesNotMutateInput(t *testing.T) {
	in := files("x.css")
	_, err := PerFile("upper", upper).Transform(t.Context(), in)
	require.NoError(t, err)
	require.Equal(t, "x.css", string(in[0].Contents))
}

func TestPerFile_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := PerFile("upper", upper).Transform(ctx, files("a"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestBatch_FailsWholeStep(t *testing.T) {
	a := Batch("bundle", func(context.Context, []*File) ([]*File, error) {
		return nil, errors.New("boom")
	})
	_, err := a.Transform(t.Context(), files("a.js", "b.js"))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTransform)

	var te *TransformError
	require.True(t, errors.As(err, &te))
	require.Equal(t, "bundle", te.Adapter)
}

func TestApply_ClassifiesErrors(t *testing.T) {
	a := Batch("bundle", func(context.Context, []*File) ([]*File, error) {
		return nil, NewTransformError("", "main.js", errors.New("boom"), "line 3")
	})
	_, err := Apply(t.Context(), a, files("main.js"))
	require.Error(t, err)
	require.Equal(t, ferrors.CategoryTransform, ferrors.GetCategory(err))
	require.ErrorIs(t, err, ErrTransform)
	p, ok := ferrors.ContextString(err, "path")
	require.True(t, ok)
	require.Equal(t, "main.js", p)
}

func TestOnly_PassesThroughNonMatching(t *testing.T) {
	a := Only("*.js", PerFile("upper", upper))
	out, err := a.Transform(t.Context(), files("index.html", "a.js", "main.css", "b.js"))
	require.NoError(t, err)
	require.Equal(t, []string{"index.html", "a.js", "b.js", "main.css"}, paths(out))
	require.Equal(t, "A.JS", string(out[1].Contents))
	require.Equal(t, "index.html", string(out[0].Contents))
	require.Equal(t, "main.css", string(out[3].Contents))
}

func TestOnly_NoMatchReturnsInput(t *testing.T) {
	called := false
	a := Only("*.png", Batch("spy", func(_ context.Context, fs []*File) ([]*File, error) {
		called = true
		return fs, nil
	}))
	out, err := a.Transform(t.Context(), files("a.css"))
	require.NoError(t, err)
	require.False(t, called)
	require.Equal(t, []string{"a.css"}, paths(out))
}

func TestChain_AppliesInOrder(t *testing.T) {
	suffix := func(s string) Adapter {
		return PerFile("suffix"+s, func(_ context.Context, f *File) ([]*File, error) {
			return []*File{f.WithContents(append([]byte(string(f.Contents)), s...))}, nil
		})
	}
	a := Chain(suffix("1"), suffix("2"))
	out, err := a.Transform(t.Context(), files("f"))
	require.NoError(t, err)
	require.Equal(t, "f12", string(out[0].Contents))
	require.Equal(t, "suffix1|suffix2", a.Name())
}

func TestFile_WithExt(t *testing.T) {
	f := NewFile("styles/main.scss", nil)
	require.Equal(t, "styles/main.css", f.WithExt(".css").Path)
	require.Equal(t, "styles/main.scss", f.Path)
}
