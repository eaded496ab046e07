package transform

import (
	"context"
	"errors"
)

// Adapter transforms a batch of files into a new batch.
type Adapter interface {
	Name() string
	Transform(ctx context.Context, files []*File) ([]*File, error)
}

// FileFunc transforms one file into zero or more files.
type FileFunc func(ctx context.Context, f *File) ([]*File, error)

// BatchFunc transforms a whole batch at once.
type BatchFunc func(ctx context.Context, files []*File) ([]*File, error)

// Option configures the policy adapters.
type Option func(*policyConfig)

type policyConfig struct {
	reporter Reporter
}

// WithReporter sets where per-file failures are reported.
func WithReporter(r Reporter) Option {
	return func(c *policyConfig) {
		if r != nil {
			c.reporter = r
		}
	}
}

func newPolicyConfig(opts []Option) policyConfig {
	c := policyConfig{reporter: NoopReporter{}}
	for _, o := range opts {
		o(&c)
	}
	return c
}

type perFile struct {
	name string
	fn   FileFunc
	cfg  policyConfig
}

// PerFile applies fn to each file independently. A failing file is reported as a
// *TransformError and dropped; the rest of the batch continues. Context cancellation
// stops the batch.
func PerFile(name string, fn FileFunc, opts ...Option) Adapter {
	return &perFile{name: name, fn: fn, cfg: newPolicyConfig(opts)}
}

func (p *perFile) Name() string { return p.name }

func (p *perFile) Transform(ctx context.Context, files []*File) ([]*File, error) {
	out := make([]*File, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.fn(ctx, f)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			p.cfg.reporter.FileSkipped(asTransformError(p.name, f.Path, err))
			continue
		}
		out = append(out, res...)
	}
	return out, nil
}

type batch struct {
	name string
	fn   BatchFunc
}

// Batch applies fn to the whole batch. Any error fails the step.
func Batch(name string, fn BatchFunc) Adapter {
	return &batch{name: name, fn: fn}
}

func (b *batch) Name() string { return b.name }

func (b *batch) Transform(ctx context.Context, files []*File) ([]*File, error) {
	out, err := b.fn(ctx, files)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, asTransformError(b.name, "", err)
	}
	return out, nil
}

func asTransformError(adapter, path string, err error) *TransformError {
	var te *TransformError
	if errors.As(err, &te) {
		if te.Adapter == "" || te.Path == "" {
			c := *te
			if c.Adapter == "" {
				c.Adapter = adapter
			}
			if c.Path == "" {
				c.Path = path
			}
			return &c
		}
		return te
	}
	return NewTransformError(adapter, path, err, "")
}

// Apply runs a under the task error policy: the returned error is classified and
// carries the adapter name.
func Apply(ctx context.Context, a Adapter, files []*File) ([]*File, error) {
	out, err := a.Transform(ctx, files)
	if err != nil {
		return nil, classify(a.Name(), err)
	}
	return out, nil
}
