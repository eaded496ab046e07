package config

import (
	"fmt"
	"log/slog"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/foundation/normalization"
)

var (
	routeTargets = normalization.New("route target", map[string]string{
		"working": "working",
		"tmp":     "working",
		"dist":    "dist",
	})
	reloadKinds = normalization.New("reload kind", map[string]string{
		"auto": "auto",
		"full": "full",
		"css":  "css",
		"none": "none",
	})
	pageSpeedStrategies = normalization.New("pagespeed strategy", map[string]string{
		"mobile":  "mobile",
		"desktop": "desktop",
	})
)

// normalizeConfig canonicalizes enum fields after defaults and before validation.
// Rewrites are returned as warnings.
func normalizeConfig(cfg *Config) ([]string, error) {
	var warnings []string
	apply := func(n *normalization.Normalizer[string], field string, v *string) error {
		res, err := n.NormalizeWithWarning(field, *v)
		if err != nil {
			return ferrors.ConfigError(fmt.Sprintf("%s: %v", field, err)).WithContext("field", field).Build()
		}
		if res.Changed {
			warnings = append(warnings, res.Warning)
		}
		*v = res.Value
		return nil
	}

	for i := range cfg.Routes {
		if err := apply(routeTargets, fmt.Sprintf("routes[%d].target", i), &cfg.Routes[i].Target); err != nil {
			return nil, err
		}
	}
	for i := range cfg.Watch.Rules {
		if err := apply(reloadKinds, fmt.Sprintf("watch.rules[%d].reload", i), &cfg.Watch.Rules[i].Reload); err != nil {
			return nil, err
		}
	}
	if err := apply(pageSpeedStrategies, "pagespeed.strategy", &cfg.PageSpeed.Strategy); err != nil {
		return nil, err
	}
	for _, w := range warnings {
		slog.Warn("Configuration normalized", slog.String("detail", w))
	}
	return warnings, nil
}
