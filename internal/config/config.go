// Package config loads the assetbuilder YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "assetbuilder.yaml"

// Config represents the application configuration.
type Config struct {
	Version   string           `yaml:"version"`
	Paths     PathsConfig      `yaml:"paths"`
	Routes    []RouteConfig    `yaml:"routes"`
	Tasks     []TaskConfig     `yaml:"tasks"`
	Watch     WatchConfig      `yaml:"watch"`
	Serve     ServeConfig      `yaml:"serve"`
	Schedule  []ScheduleConfig `yaml:"schedule,omitempty"`
	History   HistoryConfig    `yaml:"history"`
	PageSpeed PageSpeedConfig  `yaml:"pagespeed"`
	Run       RunConfig        `yaml:"run"`

	// BaseDir is the directory of the loaded file; relative paths resolve against it.
	BaseDir string `yaml:"-"`
}

// PathsConfig names the source tree and the two output directories.
type PathsConfig struct {
	Source  string `yaml:"source"`
	Working string `yaml:"working"`
	Dist    string `yaml:"dist"`
	// Preserve lists entries of dist that clean leaves alone.
	Preserve []string `yaml:"preserve,omitempty"`
}

// RouteConfig is one output routing rule.
type RouteConfig struct {
	Match  string `yaml:"match"`
	Target string `yaml:"target"`
	Strip  string `yaml:"strip,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
	Ext    string `yaml:"ext,omitempty"`
}

// TaskConfig declares a task. Either Builtin or Src/Steps describe its work; a task
// with neither is an alias that only groups its dependencies.
type TaskConfig struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Deps        []string     `yaml:"deps,omitempty"`
	After       []string     `yaml:"after,omitempty"`
	Src         []string     `yaml:"src,omitempty"`
	Exclude     []string     `yaml:"exclude,omitempty"`
	Builtin     string       `yaml:"builtin,omitempty"`
	Timeout     string       `yaml:"timeout,omitempty"`
	Steps       []StepConfig `yaml:"steps,omitempty"`
}

// StepConfig is one adapter invocation inside a task.
type StepConfig struct {
	Kind    string         `yaml:"kind"`
	Match   string         `yaml:"match,omitempty"`
	Options map[string]any `yaml:"options,omitempty"`
}

// WatchConfig drives the watch loop.
type WatchConfig struct {
	Roots    []string    `yaml:"roots,omitempty"`
	Debounce string      `yaml:"debounce,omitempty"`
	Rules    []WatchRule `yaml:"rules"`
}

// WatchRule maps changed paths to tasks and a reload kind.
type WatchRule struct {
	Match  string   `yaml:"match"`
	Tasks  []string `yaml:"tasks,omitempty"`
	Reload string   `yaml:"reload,omitempty"`
}

// ServeConfig configures the development server.
type ServeConfig struct {
	Port        int    `yaml:"port"`
	DistPort    int    `yaml:"dist_port"`
	LiveReload  *bool  `yaml:"live_reload,omitempty"`
	NATSURL     string `yaml:"nats_url,omitempty"`
	NATSSubject string `yaml:"nats_subject,omitempty"`
}

// LiveReloadEnabled reports whether the reload script and endpoints are served.
func (s ServeConfig) LiveReloadEnabled() bool { return s.LiveReload == nil || *s.LiveReload }

// ScheduleConfig runs a task periodically while watching.
type ScheduleConfig struct {
	Task  string `yaml:"task"`
	Every string `yaml:"every"`
}

// HistoryConfig locates the run history database. An empty path disables recording.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// PageSpeedConfig configures the pagespeed command.
type PageSpeedConfig struct {
	URL      string `yaml:"url,omitempty"`
	Strategy string `yaml:"strategy,omitempty"`
	Key      string `yaml:"key,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// RunConfig bounds task execution.
type RunConfig struct {
	Jobs    int    `yaml:"jobs,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

// Load loads configuration from configPath, applies defaults and validates it.
func Load(configPath string) (*Config, error) {
	loadEnvFiles(filepath.Dir(configPath))

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
				WithContext("path", configPath).
				Build()
		}
		return nil, ferrors.ConfigError("failed to read config file").WithCause(err).WithContext("path", configPath).Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid configuration").
			WithContext("path", configPath).
			Fatal().
			Build()
	}
	abs, err := filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		return nil, ferrors.ConfigError("resolve config directory").WithCause(err).Build()
	}
	cfg.BaseDir = abs
	return cfg, nil
}

// Parse decodes YAML with ${VAR} expansion, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, ferrors.ConfigError("failed to unmarshal config").WithCause(err).Build()
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if _, err := normalizeConfig(&cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Resolve returns p made absolute against BaseDir.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	base := c.BaseDir
	if base == "" {
		base = "."
	}
	return filepath.Join(base, p)
}

// Task returns the task named name.
func (c *Config) Task(name string) (TaskConfig, bool) {
	for _, t := range c.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return TaskConfig{}, false
}

// TimeoutDuration parses Timeout; empty means none.
func (t TaskConfig) TimeoutDuration() time.Duration { return mustDuration(t.Timeout) }

// DebounceDuration parses Debounce.
func (w WatchConfig) DebounceDuration() time.Duration { return mustDuration(w.Debounce) }

// Interval parses Every.
func (s ScheduleConfig) Interval() time.Duration { return mustDuration(s.Every) }

// TimeoutDuration parses Timeout; empty means none.
func (r RunConfig) TimeoutDuration() time.Duration { return mustDuration(r.Timeout) }

// mustDuration is only used after validation has accepted the value.
func mustDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
