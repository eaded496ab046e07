package config

import (
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Builtins are the task bodies provided without steps.
var Builtins = []string{"clean"}

// ValidateConfig validates the complete configuration.
func ValidateConfig(cfg *Config) error {
	return newConfigurationValidator(cfg).validate()
}

type configurationValidator struct {
	config *Config
	names  map[string]bool
}

func newConfigurationValidator(cfg *Config) *configurationValidator {
	return &configurationValidator{config: cfg, names: make(map[string]bool)}
}

func (cv *configurationValidator) validate() error {
	if cv.config.Version != "1" {
		return invalid(fmt.Sprintf("unsupported config version %q", cv.config.Version))
	}
	if err := cv.validatePaths(); err != nil {
		return err
	}
	if err := cv.validateRoutes(); err != nil {
		return err
	}
	if err := cv.validateTasks(); err != nil {
		return err
	}
	if err := cv.validateWatch(); err != nil {
		return err
	}
	if err := cv.validateSchedule(); err != nil {
		return err
	}
	return cv.validateRun()
}

func invalid(msg string) error {
	return ferrors.ConfigError(msg).Build()
}

func (cv *configurationValidator) validatePaths() error {
	p := cv.config.Paths
	if p.Working == p.Dist {
		return invalid("paths.working and paths.dist must differ")
	}
	if p.Source == p.Working || p.Source == p.Dist {
		return invalid("paths.source must differ from the output directories")
	}
	return nil
}

func (cv *configurationValidator) validateRoutes() error {
	for i, r := range cv.config.Routes {
		if !validGlob(r.Match) {
			return invalid(fmt.Sprintf("routes[%d]: invalid match %q", i, r.Match))
		}
		if r.Target != "working" && r.Target != "dist" {
			return invalid(fmt.Sprintf("routes[%d]: target must be working or dist, got %q", i, r.Target))
		}
	}
	return nil
}

func (cv *configurationValidator) validateTasks() error {
	for _, t := range cv.config.Tasks {
		if t.Name == "" {
			return invalid("task name cannot be empty")
		}
		if cv.names[t.Name] {
			return ferrors.ConfigError(fmt.Sprintf("duplicate task name: %s", t.Name)).WithContext("task", t.Name).Build()
		}
		cv.names[t.Name] = true
	}
	for _, t := range cv.config.Tasks {
		if err := cv.validateTask(t); err != nil {
			return err
		}
	}
	return nil
}

func (cv *configurationValidator) validateTask(t TaskConfig) error {
	fail := func(msg string) error {
		return ferrors.ConfigError(fmt.Sprintf("task %q: %s", t.Name, msg)).WithContext("task", t.Name).Build()
	}
	for _, ref := range append(append([]string(nil), t.Deps...), t.After...) {
		if !cv.names[ref] {
			return fail(fmt.Sprintf("unknown task %q", ref))
		}
	}
	if t.Builtin != "" {
		if !contains(Builtins, t.Builtin) {
			return fail(fmt.Sprintf("unknown builtin %q", t.Builtin))
		}
		if len(t.Steps) > 0 || len(t.Src) > 0 {
			return fail("builtin tasks take no src or steps")
		}
	}
	if len(t.Steps) > 0 && len(t.Src) == 0 {
		return fail("steps need at least one src pattern")
	}
	for _, p := range append(append([]string(nil), t.Src...), t.Exclude...) {
		if !validGlob(p) {
			return fail(fmt.Sprintf("invalid pattern %q", p))
		}
	}
	for i, s := range t.Steps {
		if s.Kind == "" {
			return fail(fmt.Sprintf("steps[%d]: kind is required", i))
		}
		if s.Match != "" && !validGlob(s.Match) {
			return fail(fmt.Sprintf("steps[%d]: invalid match %q", i, s.Match))
		}
	}
	if err := positiveDuration(t.Timeout, true); err != nil {
		return fail("timeout " + err.Error())
	}
	return nil
}

func (cv *configurationValidator) validateWatch() error {
	if err := positiveDuration(cv.config.Watch.Debounce, false); err != nil {
		return invalid("watch.debounce " + err.Error())
	}
	for i, r := range cv.config.Watch.Rules {
		if !validGlob(r.Match) {
			return invalid(fmt.Sprintf("watch.rules[%d]: invalid match %q", i, r.Match))
		}
		switch r.Reload {
		case "auto", "full", "css", "none":
		default:
			return invalid(fmt.Sprintf("watch.rules[%d]: reload must be auto, full, css or none, got %q", i, r.Reload))
		}
		for _, name := range r.Tasks {
			if !cv.names[name] {
				return invalid(fmt.Sprintf("watch.rules[%d]: unknown task %q", i, name))
			}
		}
	}
	return nil
}

func (cv *configurationValidator) validateSchedule() error {
	for i, s := range cv.config.Schedule {
		if !cv.names[s.Task] {
			return invalid(fmt.Sprintf("schedule[%d]: unknown task %q", i, s.Task))
		}
		if err := positiveDuration(s.Every, false); err != nil {
			return invalid(fmt.Sprintf("schedule[%d]: every %v", i, err))
		}
	}
	return nil
}

func (cv *configurationValidator) validateRun() error {
	if err := positiveDuration(cv.config.Run.Timeout, true); err != nil {
		return invalid("run.timeout " + err.Error())
	}
	return nil
}

func positiveDuration(s string, optional bool) error {
	if s == "" && optional {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("must be a duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("must be positive, got %s", s)
	}
	return nil
}

func validGlob(p string) bool { return p != "" && doublestar.ValidatePattern(p) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
