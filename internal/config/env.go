package config

import (
	"log/slog"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// envFiles are tried in order next to the configuration file. Existing process
// environment variables always win.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads every present env file from dir. Missing files are not an error.
func loadEnvFiles(dir string) {
	for _, name := range envFiles {
		p := filepath.Join(dir, name)
		if err := godotenv.Load(p); err != nil {
			continue
		}
		slog.Debug("Loaded environment variables", logfields.Path(p))
	}
}
