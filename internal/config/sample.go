package config

import (
	"fmt"
	"os"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// SampleConfig reproduces the classic web starter kit pipeline: clean, then styles,
// then scripts, html, images, fonts and copy in parallel.
const SampleConfig = `version: "1"

paths:
  source: src
  working: .tmp
  dist: dist
  preserve: [".git"]

routes:
  - match: "fonts/**"
    target: dist
  - match: "**"
    target: dist

tasks:
  - name: clean
    description: Remove .tmp and the contents of dist (keeps dist/.git)
    builtin: clean

  - name: jshint
    description: Lint JavaScript
    src: ["**/*.js"]
    steps:
      - kind: lint

  - name: styles
    description: Compile and prefix stylesheets, then minify into dist
    after: [clean]
    src: ["**/*.scss", "**/*.css"]
    steps:
      - kind: changed
        options: {target: working, ext: .css, invalidate: "_*.scss"}
      - kind: sass
        options: {include_paths: [src/styles]}
      - kind: dest
        options: {target: working}
      - kind: minify
        match: "*.css"
      - kind: dest
      - kind: size
        options: {title: styles}

  - name: scripts
    description: Concatenate and minify JavaScript
    after: [clean, styles]
    src: ["views/js/*.js", "styleguide/wskComponentHandler.js", "styleguide/**/*.js"]
    steps:
      - kind: concat
        options: {name: views/js/main.js, separator: ";\n"}
      - kind: minify
      - kind: dest
      - kind: size
        options: {title: scripts}

  - name: html
    description: Scan HTML for assets and optimize them
    after: [clean, styles]
    src: ["**/*.html"]
    steps:
      - kind: useref
      - kind: minify
        match: "*.css"
      - kind: minify
        match: "*.html"
      - kind: inline
      - kind: dest
      - kind: size
        options: {title: html}

  - name: images
    description: Optimize images
    after: [clean, styles]
    src: ["img/*", "views/images/*"]
    steps:
      - kind: imagemin
      - kind: dest

  - name: fonts
    description: Copy web fonts to dist
    after: [clean, styles]
    src: ["fonts/**"]
    steps:
      - kind: dest

  - name: copy
    description: Copy root level files
    after: [clean, styles]
    src: ["*"]
    exclude: ["*.html"]
    steps:
      - kind: dest

  - name: default
    description: Build production files
    deps: [clean, styles, scripts, html, images, fonts, copy]

watch:
  roots: [src]
  debounce: 300ms
  rules:
    - match: "**/*.html"
      reload: full
    - match: "**/*.{scss,css}"
      tasks: [styles]
      reload: css
    - match: "**/*.js"
      tasks: [jshint]
      reload: none
    - match: "**/*.{png,jpg,jpeg}"
      reload: full

serve:
  port: 9000
  dist_port: 9001
  live_reload: true

history:
  path: .assetbuilder/history.db

pagespeed:
  url: https://example.com
  strategy: mobile
`

// Init writes the sample configuration to configPath.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			WithContext("path", configPath).
			Build()
	}
	if err := os.WriteFile(configPath, []byte(SampleConfig), 0o644); err != nil {
		return ferrors.FileSystemError("failed to write config file").WithCause(err).WithContext("path", configPath).Build()
	}
	return nil
}
