package config

import "runtime"

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

var defaultAppliers = []DefaultApplier{
	&PathsDefaultApplier{},
	&WatchDefaultApplier{},
	&ServeDefaultApplier{},
	&RunDefaultApplier{},
	&PageSpeedDefaultApplier{},
}

func applyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = "1"
	}
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// PathsDefaultApplier mirrors the conventional src/.tmp/dist layout.
type PathsDefaultApplier struct{}

func (p *PathsDefaultApplier) Domain() string { return "paths" }

func (p *PathsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Paths.Source == "" {
		cfg.Paths.Source = "src"
	}
	if cfg.Paths.Working == "" {
		cfg.Paths.Working = ".tmp"
	}
	if cfg.Paths.Dist == "" {
		cfg.Paths.Dist = "dist"
	}
	if cfg.Paths.Preserve == nil {
		cfg.Paths.Preserve = []string{".git"}
	}
	return nil
}

// WatchDefaultApplier handles watch loop defaults.
type WatchDefaultApplier struct{}

func (w *WatchDefaultApplier) Domain() string { return "watch" }

func (w *WatchDefaultApplier) ApplyDefaults(cfg *Config) error {
	if len(cfg.Watch.Roots) == 0 {
		cfg.Watch.Roots = []string{cfg.Paths.Source}
	}
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = "300ms"
	}
	for i := range cfg.Watch.Rules {
		if cfg.Watch.Rules[i].Reload == "" {
			cfg.Watch.Rules[i].Reload = "auto"
		}
	}
	return nil
}

// ServeDefaultApplier handles dev server defaults.
type ServeDefaultApplier struct{}

func (s *ServeDefaultApplier) Domain() string { return "serve" }

func (s *ServeDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = 9000
	}
	if cfg.Serve.DistPort == 0 {
		cfg.Serve.DistPort = 9001
	}
	if cfg.Serve.NATSURL != "" && cfg.Serve.NATSSubject == "" {
		cfg.Serve.NATSSubject = "assetbuilder.reload"
	}
	return nil
}

// RunDefaultApplier handles execution defaults.
type RunDefaultApplier struct{}

func (r *RunDefaultApplier) Domain() string { return "run" }

func (r *RunDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Run.Jobs <= 0 {
		cfg.Run.Jobs = runtime.NumCPU()
	}
	return nil
}

// PageSpeedDefaultApplier handles pagespeed defaults.
type PageSpeedDefaultApplier struct{}

func (p *PageSpeedDefaultApplier) Domain() string { return "pagespeed" }

func (p *PageSpeedDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.PageSpeed.Strategy == "" {
		cfg.PageSpeed.Strategy = "mobile"
	}
	return nil
}
