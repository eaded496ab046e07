package transform

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
)

// StepConfig describes one configured step of a task.
type StepConfig struct {
	Kind    string
	Match   string
	Options Options
}

// Env is what factories may depend on besides their own options.
type Env struct {
	Reporter Reporter
	// SearchRoots are absolute directories used to resolve asset references in HTML.
	SearchRoots []string
}

func (e Env) reporter() Reporter {
	if e.Reporter == nil {
		return NoopReporter{}
	}
	return e.Reporter
}

// Factory creates an adapter for one configured step.
type Factory func(env Env, opts Options) (Adapter, error)

// Catalog maps step kinds to factories. It is built explicitly and passed around.
type Catalog struct {
	mu        sync.RWMutex
	env       Env
	factories map[string]Factory
}

// NewCatalog returns a catalog with every built-in kind registered.
func NewCatalog(env Env) *Catalog {
	c := &Catalog{env: env, factories: make(map[string]Factory)}
	c.factories["sass"] = newSass
	c.factories["exec"] = newExec
	c.factories["lint"] = newLint
	c.factories["minify"] = newMinify
	c.factories["concat"] = newConcat
	c.factories["imagemin"] = newImagemin
	c.factories["inline"] = newInline
	c.factories["useref"] = newUseref
	c.factories["markdown"] = newMarkdown
	c.factories["size"] = newSize
	return c
}

// Register adds or replaces a kind.
func (c *Catalog) Register(kind string, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[kind] = f
}

// Has reports whether kind is known.
func (c *Catalog) Has(kind string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.factories[kind]
	return ok
}

// Kinds returns the registered kinds, sorted.
func (c *Catalog) Kinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.factories))
	for k := range c.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build instantiates the adapter for step, wrapped in Only when step.Match is set.
func (c *Catalog) Build(step StepConfig) (Adapter, error) {
	c.mu.RLock()
	f, ok := c.factories[step.Kind]
	c.mu.RUnlock()
	if !ok {
		return nil, ferrors.ConfigError(fmt.Sprintf("unknown step kind %q", step.Kind)).
			WithContext("kind", step.Kind).
			Build()
	}
	if step.Match != "" {
		if err := fileset.ValidatePattern(step.Match); err != nil {
			return nil, err
		}
	}
	a, err := f(c.env, step.Options)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, fmt.Sprintf("configure %s step", step.Kind)).
			WithContext("kind", step.Kind).
			Build()
	}
	return Only(step.Match, a), nil
}

// Options holds free-form step options decoded from configuration.
type Options map[string]any

// String returns key as a string or def.
func (o Options) String(key, def string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// Bool returns key as a bool or def.
func (o Options) Bool(key string, def bool) bool {
	switch x := o[key].(type) {
	case bool:
		return x
	case string:
		if b, err := strconv.ParseBool(x); err == nil {
			return b
		}
	}
	return def
}

// Int returns key as an int or def.
func (o Options) Int(key string, def int) int {
	switch x := o[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	case string:
		if n, err := strconv.Atoi(x); err == nil {
			return n
		}
	}
	return def
}

// Duration returns key parsed as a duration or def.
func (o Options) Duration(key string, def time.Duration) time.Duration {
	if s, ok := o[key].(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return def
}

// Strings returns key as a string list. A single string becomes a one-element list.
func (o Options) Strings(key string) []string {
	switch x := o[key].(type) {
	case string:
		return []string{x}
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, v := range x {
			out = append(out, fmt.Sprint(v))
		}
		return out
	}
	return nil
}

func requireOption(kind string, o Options, key string) (string, error) {
	v := o.String(key, "")
	if v == "" {
		return "", ferrors.ValidationError(fmt.Sprintf("%s: option %q is required", kind, key)).
			WithContext("kind", kind).
			WithContext("option", key).
			Build()
	}
	return v, nil
}
