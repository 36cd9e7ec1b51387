package assistpanel

import (
	"os"
	"path/filepath"

	"github.com/assistkit/assistpanel/api"
)

// applyDefaults fills in missing fields on the builder with sensible defaults.
func applyDefaults(b *Builder) {
	if b.config.ServerURL == "" {
		b.config.ServerURL = envOr("ASSISTPANEL_SERVER", "http://localhost:7080")
	}
	if b.config.BasePath == "" {
		b.config.BasePath = envOr("ASSISTPANEL_BASE", api.DefaultBasePath)
	}
	if b.config.ServeAddr == "" {
		b.config.ServeAddr = ":7080"
	}
	if b.config.DataDir == "" {
		b.config.DataDir = defaultDataDir()
	}
	if b.config.DatabasePath == "" {
		b.config.DatabasePath = filepath.Join(b.config.DataDir, "assistpanel.db")
	}
}

// envOr returns the environment variable's value, or fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".assistpanel"
	}
	return filepath.Join(home, ".assistpanel")
}
