// Package router decides where a processed file is written.
//
// Routing is pure: it looks at the source-relative path only and never touches the
// filesystem or file contents.
package router

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Target names a destination root.
type Target string

const (
	TargetWorking Target = "working"
	TargetDist    Target = "dist"
)

// ErrNoRouteMatched is returned when no rule matches a path.
var ErrNoRouteMatched = errors.New("no route matched")

// Rule maps source paths matching Match to a target root, optionally rewriting the path.
type Rule struct {
	// Match is a doublestar pattern on the source-relative slash path.
	Match  string
	Target Target
	// Strip removes a leading directory prefix before routing.
	Strip string
	// Prefix is prepended after stripping.
	Prefix string
	// Ext replaces the file extension (including the dot).
	Ext string
}

// Dirs are the absolute destination roots.
type Dirs struct {
	Working string
	Dist    string
}

// OutputTarget is the resolved destination of a file.
type OutputTarget struct {
	Target Target
	Root   string
	// Rel is the rewritten slash path below Root.
	Rel string
	// Path is the absolute destination path.
	Path string
}

// Router resolves output targets. It is safe for concurrent use.
type Router struct {
	rules []Rule
	dirs  Dirs
}

// New validates rules and returns a router.
func New(rules []Rule, dirs Dirs) (*Router, error) {
	rules = append([]Rule(nil), rules...)
	for i, r := range rules {
		if r.Match == "" || !doublestar.ValidatePattern(r.Match) {
			return nil, ferrors.ConfigError(fmt.Sprintf("route %d: invalid pattern %q", i, r.Match)).
				WithContext("pattern", r.Match).
				Build()
		}
		if _, err := dirs.root(r.Target); err != nil {
			return nil, ferrors.ConfigError(fmt.Sprintf("route %d: %v", i, err)).
				WithContext("pattern", r.Match).
				Build()
		}
		if r.Ext != "" && !strings.HasPrefix(r.Ext, ".") {
			rules[i].Ext = "." + r.Ext
		}
	}
	return &Router{rules: rules, dirs: dirs}, nil
}

// ParseTarget converts a config string into a Target.
func ParseTarget(s string) (Target, error) {
	switch Target(strings.ToLower(strings.TrimSpace(s))) {
	case TargetWorking:
		return TargetWorking, nil
	case TargetDist:
		return TargetDist, nil
	default:
		return "", ferrors.ConfigError(fmt.Sprintf("unknown route target %q", s)).Build()
	}
}

func (d Dirs) root(t Target) (string, error) {
	switch t {
	case TargetWorking:
		if d.Working == "" {
			return "", errors.New("working directory not configured")
		}
		return d.Working, nil
	case TargetDist:
		if d.Dist == "" {
			return "", errors.New("dist directory not configured")
		}
		return d.Dist, nil
	default:
		return "", fmt.Errorf("unknown target %q", t)
	}
}

// Rules returns a copy of the configured rules.
func (r *Router) Rules() []Rule { return append([]Rule(nil), r.rules...) }

// Route resolves p using the first matching rule.
func (r *Router) Route(p string) (OutputTarget, error) {
	return r.route(p, "")
}

// RouteTo resolves p with the first matching rule's rewrite but forces target. When no
// rule matches, the path is kept as is below target's root.
func (r *Router) RouteTo(p string, target Target) (OutputTarget, error) {
	return r.route(p, target)
}

func (r *Router) route(p string, override Target) (OutputTarget, error) {
	rel, err := clean(p)
	if err != nil {
		return OutputTarget{}, err
	}

	rule, ok := r.match(rel)
	if !ok {
		if override == "" {
			return OutputTarget{}, ferrors.RouteError(fmt.Sprintf("no route matched %q", rel)).
				WithCause(ErrNoRouteMatched).
				WithContext("path", rel).
				Build()
		}
		rule = Rule{Target: override}
	}
	if override != "" {
		rule.Target = override
	}

	root, err := r.dirs.root(rule.Target)
	if err != nil {
		return OutputTarget{}, ferrors.RouteError(err.Error()).WithContext("path", rel).Build()
	}
	out, err := rewrite(rule, rel)
	if err != nil {
		return OutputTarget{}, err
	}
	return OutputTarget{
		Target: rule.Target,
		Root:   root,
		Rel:    out,
		Path:   filepath.Join(root, filepath.FromSlash(out)),
	}, nil
}

func (r *Router) match(rel string) (Rule, bool) {
	for _, rule := range r.rules {
		if ok, _ := doublestar.Match(rule.Match, rel); ok {
			return rule, true
		}
	}
	return Rule{}, false
}

func rewrite(rule Rule, rel string) (string, error) {
	out := rel
	if rule.Strip != "" {
		strip := strings.Trim(rule.Strip, "/") + "/"
		out = strings.TrimPrefix(out, strip)
	}
	if rule.Prefix != "" {
		out = path.Join(strings.Trim(rule.Prefix, "/"), out)
	}
	if rule.Ext != "" {
		out = strings.TrimSuffix(out, path.Ext(out)) + rule.Ext
	}
	return clean(out)
}

func clean(p string) (string, error) {
	p = strings.TrimPrefix(filepath.ToSlash(p), "/")
	c := path.Clean(p)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", ferrors.RouteError(fmt.Sprintf("path %q escapes the output root", p)).
			WithContext("path", p).
			Build()
	}
	return c, nil
}
