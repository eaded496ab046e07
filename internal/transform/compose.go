package transform

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
)

type only struct {
	pattern string
	inner   Adapter
}

// Only applies inner to the files matching pattern. Non-matching files pass through in
// their original positions; the outputs of inner take the position of the first match.
func Only(pattern string, inner Adapter) Adapter {
	if pattern == "" {
		return inner
	}
	return &only{pattern: pattern, inner: inner}
}

func (o *only) Name() string { return o.inner.Name() }

func (o *only) Transform(ctx context.Context, files []*File) ([]*File, error) {
	var selected []*File
	first := -1
	for i, f := range files {
		if fileset.MatchName(o.pattern, f.Path) {
			if first < 0 {
				first = i
			}
			selected = append(selected, f)
		}
	}
	if first < 0 {
		return files, nil
	}

	produced, err := o.inner.Transform(ctx, selected)
	if err != nil {
		return nil, err
	}

	out := make([]*File, 0, len(files)-len(selected)+len(produced))
	for i, f := range files {
		if i == first {
			out = append(out, produced...)
		}
		if !fileset.MatchName(o.pattern, f.Path) {
			out = append(out, f)
		}
	}
	return out, nil
}

type chain struct {
	adapters []Adapter
}

// Chain composes adapters left to right into a single adapter.
func Chain(adapters ...Adapter) Adapter {
	if len(adapters) == 1 {
		return adapters[0]
	}
	return &chain{adapters: adapters}
}

func (c *chain) Name() string {
	names := make([]string, 0, len(c.adapters))
	for _, a := range c.adapters {
		names = append(names, a.Name())
	}
	return strings.Join(names, "|")
}

func (c *chain) Transform(ctx context.Context, files []*File) ([]*File, error) {
	var err error
	for _, a := range c.adapters {
		files, err = a.Transform(ctx, files)
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// Passthrough returns the batch unchanged.
func Passthrough(name string) Adapter {
	return Batch(name, func(_ context.Context, files []*File) ([]*File, error) {
		return files, nil
	})
}
