// Package config loads client configuration: defaults, then the config
// file, then environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file the CLI reads when none is given.
const DefaultFile = ".crucible.yaml"

// Config carries everything the CLI and server need to start.
type Config struct {
	// BaseURL is the entity API endpoint the http backend talks to.
	BaseURL string `yaml:"base_url"`
	// Backend selects the store: "http" or "sqlite".
	Backend string `yaml:"backend"`
	// DBPath is the sqlite database location for the sqlite backend and
	// the dev server.
	DBPath string `yaml:"db_path"`
	// Addr is the dev server listen address.
	Addr string `yaml:"addr"`
	// Username tags created entities with their owner.
	Username string `yaml:"username"`
	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

func def() Config {
	return Config{
		BaseURL:  "http://localhost:8001",
		Backend:  "http",
		DBPath:   "crucible.db",
		Addr:     ":8001",
		Username: "",
		LogLevel: "info",
	}
}

// DefaultPath returns ~/.crucible.yaml, or the bare filename when the
// home directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFile
	}
	return filepath.Join(home, DefaultFile)
}

// Load reads the config file at path when it exists, then applies
// environment overrides. A missing file is not an error; a malformed one
// is.
func Load(path string) (Config, error) {
	cfg := def()

	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.BaseURL = getenv("CRUCIBLE_BASE_URL", cfg.BaseURL)
	cfg.Backend = getenv("CRUCIBLE_BACKEND", cfg.Backend)
	cfg.DBPath = getenv("CRUCIBLE_DB_PATH", cfg.DBPath)
	cfg.Addr = getenv("CRUCIBLE_ADDR", cfg.Addr)
	cfg.Username = getenv("CRUCIBLE_USERNAME", cfg.Username)
	cfg.LogLevel = getenv("CRUCIBLE_LOG_LEVEL", cfg.LogLevel)

	switch cfg.Backend {
	case "http", "sqlite":
	default:
		return cfg, fmt.Errorf("unknown backend %q (want http or sqlite)", cfg.Backend)
	}
	return cfg, nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
