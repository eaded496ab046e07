package watch

import (
	"path"
	"slices"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
)

// ReloadKind is the browser reaction a rule asks for.
type ReloadKind string

const (
	ReloadAuto ReloadKind = "auto"
	ReloadFull ReloadKind = "full"
	ReloadCSS  ReloadKind = "css"
	ReloadNone ReloadKind = "none"
)

// Rule maps matching paths to tasks and a reload kind.
type Rule struct {
	Match  string
	Tasks  []string
	Reload ReloadKind
}

// RulesFromConfig converts the configured watch rules.
func RulesFromConfig(rules []config.WatchRule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, Rule{Match: r.Match, Tasks: slices.Clone(r.Tasks), Reload: ReloadKind(r.Reload)})
	}
	return out
}

var (
	stylesheetExts = []string{".css", ".scss", ".sass", ".less"}
	imageExts      = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico"}
)

// inferReload picks a reload kind from the file extension for rules without one.
func inferReload(p string) ReloadKind {
	ext := strings.ToLower(path.Ext(p))
	switch {
	case slices.Contains(stylesheetExts, ext):
		return ReloadCSS
	case slices.Contains(imageExts, ext):
		return ReloadNone
	default:
		return ReloadFull
	}
}

// mergeReload combines the reactions of several changed paths: any full
// reload wins over css, and css wins over none.
func mergeReload(a, b ReloadKind) ReloadKind {
	rank := func(k ReloadKind) int {
		switch k {
		case ReloadFull:
			return 2
		case ReloadCSS:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// Resolution is what a batch of changed paths asks for.
type Resolution struct {
	Goals   []string
	Reload  ReloadKind
	Matched []string
}

// Resolve maps changed paths through the first matching rule of each path.
// Paths that match no rule are ignored.
func Resolve(rules []Rule, changed []string) Resolution {
	res := Resolution{Reload: ReloadNone}
	seen := map[string]bool{}
	for _, p := range changed {
		for _, r := range rules {
			if !fileset.Match(r.Match, p) {
				continue
			}
			res.Matched = append(res.Matched, p)
			for _, t := range r.Tasks {
				if !seen[t] {
					seen[t] = true
					res.Goals = append(res.Goals, t)
				}
			}
			kind := r.Reload
			if kind == ReloadAuto || kind == "" {
				kind = inferReload(p)
			}
			res.Reload = mergeReload(res.Reload, kind)
			break
		}
	}
	return res
}
