// Package normalization folds free-form configuration strings onto known enum values.
package normalization

import (
	"fmt"
	"slices"
	"strings"
)

// Func cleans a raw value before lookup.
type Func func(string) string

// Fold trims and lower-cases a value.
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Normalizer maps accepted spellings onto enum values.
type Normalizer[T comparable] struct {
	name   string
	values map[string]T
	keys   []string
	clean  Func
}

// New creates a normalizer named name (used in errors) that accepts the given spellings.
func New[T comparable](name string, values map[string]T) *Normalizer[T] {
	return WithFunc(name, values, Fold)
}

// WithFunc is New with a custom cleaning function.
func WithFunc[T comparable](name string, values map[string]T, clean Func) *Normalizer[T] {
	n := &Normalizer[T]{name: name, values: make(map[string]T, len(values)), clean: clean}
	for k, v := range values {
		key := clean(k)
		n.values[key] = v
		n.keys = append(n.keys, key)
	}
	slices.Sort(n.keys)
	return n
}

// Normalize returns the enum value for raw.
func (n *Normalizer[T]) Normalize(raw string) (T, error) {
	if v, ok := n.values[n.clean(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q (valid: %s)", n.name, raw, strings.Join(n.keys, ", "))
}

// Result reports a normalization together with whether the input was rewritten.
type Result[T comparable] struct {
	Value   T
	Changed bool
	Warning string
}

// NormalizeWithWarning normalizes raw and describes any rewrite of field.
func (n *Normalizer[T]) NormalizeWithWarning(field, raw string) (Result[T], error) {
	v, err := n.Normalize(raw)
	if err != nil {
		return Result[T]{}, err
	}
	res := Result[T]{Value: v}
	if cleaned := n.clean(raw); cleaned != raw {
		res.Changed = true
		res.Warning = fmt.Sprintf("normalized %s from '%s' to '%s'", field, raw, cleaned)
	}
	return res, nil
}

// ValidKeys lists the accepted spellings in sorted order.
func (n *Normalizer[T]) ValidKeys() []string {
	return slices.Clone(n.keys)
}
