package transform

import (
	"errors"
	"fmt"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// ErrTransform is the sentinel matched by every *TransformError.
var ErrTransform = errors.New("transform failed")

// TransformError reports a failure of one adapter on one file (or the whole batch when
// Path is empty). Diagnostic holds tool output such as compiler stderr.
type TransformError struct {
	Adapter    string
	Path       string
	Diagnostic string
	Err        error
}

func (e *TransformError) Error() string {
	msg := e.Adapter
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Diagnostic != "" {
		msg += "\n" + e.Diagnostic
	}
	return msg
}

func (e *TransformError) Unwrap() error { return e.Err }

func (e *TransformError) Is(target error) bool { return target == ErrTransform }

// NewTransformError builds a *TransformError.
func NewTransformError(adapter, path string, err error, diagnostic string) *TransformError {
	return &TransformError{Adapter: adapter, Path: path, Diagnostic: diagnostic, Err: err}
}

// classify wraps err for surfacing from a task while keeping the *TransformError reachable.
func classify(adapter string, err error) error {
	if err == nil || ferrors.IsClassified(err) {
		return err
	}
	b := ferrors.WrapError(err, ferrors.CategoryTransform, fmt.Sprintf("%s step failed", adapter)).
		WithContext("adapter", adapter)
	var te *TransformError
	if errors.As(err, &te) && te.Path != "" {
		b = b.WithContext("path", te.Path)
	}
	return b.Build()
}
