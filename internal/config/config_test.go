package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

func TestParse_SampleConfig(t *testing.T) {
	cfg, err := Parse([]byte(SampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "src", cfg.Paths.Source)
	assert.Equal(t, []string{".git"}, cfg.Paths.Preserve)
	assert.Len(t, cfg.Tasks, 9)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.DebounceDuration())
	assert.True(t, cfg.Serve.LiveReloadEnabled())

	styles, ok := cfg.Task("styles")
	require.True(t, ok)
	assert.Equal(t, []string{"clean"}, styles.After)
	assert.Equal(t, "changed", styles.Steps[0].Kind)
	assert.Equal(t, "working", styles.Steps[0].Options["target"])
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`tasks: [{name: a}]`))
	require.NoError(t, err)
	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, ".tmp", cfg.Paths.Working)
	assert.Equal(t, "dist", cfg.Paths.Dist)
	assert.Equal(t, []string{"src"}, cfg.Watch.Roots)
	assert.Equal(t, 9000, cfg.Serve.Port)
	assert.Positive(t, cfg.Run.Jobs)
	assert.Equal(t, "mobile", cfg.PageSpeed.Strategy)
}

func TestParse_ExpandsEnvironment(t *testing.T) {
	t.Setenv("AB_DIST", "public")
	cfg, err := Parse([]byte("paths: {dist: ${AB_DIST}}\n"))
	require.NoError(t, err)
	assert.Equal(t, "public", cfg.Paths.Dist)
}

func TestParse_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"duplicate task":    "tasks: [{name: a}, {name: a}]",
		"unknown dep":       "tasks: [{name: a, deps: [b]}]",
		"unknown after":     "tasks: [{name: a, after: [b]}]",
		"bad timeout":       "tasks: [{name: a, timeout: soon}]",
		"negative timeout":  "tasks: [{name: a, timeout: -1s}]",
		"steps without src": "tasks: [{name: a, steps: [{kind: size}]}]",
		"unknown builtin":   "tasks: [{name: a, builtin: deploy}]",
		"route target":      "routes: [{match: '**', target: cdn}]",
		"route pattern":     "routes: [{match: '[', target: dist}]",
		"watch reload":      "watch: {rules: [{match: '**', reload: page}]}",
		"watch task":        "watch: {rules: [{match: '**', tasks: [x]}]}",
		"zero debounce":     "watch: {debounce: 0s}",
		"schedule task":     "schedule: [{task: x, every: 1m}]",
		"same dirs":         "paths: {working: out, dist: out}",
		"version":           "version: \"2\"",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			require.Equal(t, ferrors.CategoryConfig, ferrors.GetCategory(err))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Equal(t, ferrors.CategoryConfig, ferrors.GetCategory(err))
}

func TestLoad_ReadsEnvFileAndSetsBaseDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AB_TEST_SOURCE", "")
	require.NoError(t, os.Unsetenv("AB_TEST_SOURCE"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("AB_TEST_SOURCE=assets\n"), 0o600))
	path := filepath.Join(dir, "assetbuilder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths: {source: ${AB_TEST_SOURCE}}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "assets", cfg.Paths.Source)
	assert.Equal(t, dir, cfg.BaseDir)
	assert.Equal(t, filepath.Join(dir, "dist"), cfg.Resolve(cfg.Paths.Dist))
}

func TestInit_WritesLoadableSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	_, err := Load(path)
	require.NoError(t, err)
}

func TestParse_NormalizesEnums(t *testing.T) {
	doc := `
routes:
  - {match: "**/*.css", target: TMP}
  - {match: "**", target: " Dist "}
watch:
  rules:
    - {match: "**/*.scss", reload: CSS}
pagespeed:
  strategy: Desktop
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "working", cfg.Routes[0].Target)
	assert.Equal(t, "dist", cfg.Routes[1].Target)
	assert.Equal(t, "css", cfg.Watch.Rules[0].Reload)
	assert.Equal(t, "desktop", cfg.PageSpeed.Strategy)

	warnings, err := normalizeConfig(cfg)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}
