// Package config loads the engine configuration from TOML with environment
// overlays. Precedence is last-write-wins per field: defaults, then
// config.toml, then the config.<env>.toml overlay, then ASSAY_* environment
// variables.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/mwhitfield/assay/internal/notes"
	"github.com/mwhitfield/assay/internal/policy"
	"github.com/mwhitfield/assay/pkg/database"
	"github.com/mwhitfield/assay/pkg/pagination"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvAssayEnv     = "ASSAY_ENV"
	EnvAssayVersion = "ASSAY_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "ASSAY_DB_HOST",
	Port:            "ASSAY_DB_PORT",
	Name:            "ASSAY_DB_NAME",
	User:            "ASSAY_DB_USER",
	Password:        "ASSAY_DB_PASSWORD",
	SSLMode:         "ASSAY_DB_SSL_MODE",
	MaxOpenConns:    "ASSAY_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "ASSAY_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "ASSAY_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "ASSAY_DB_CONN_TIMEOUT",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "ASSAY_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "ASSAY_PAGINATION_MAX_PAGE_SIZE",
}

// Config is the root configuration for the reconciliation engine.
type Config struct {
	Database   database.Config   `toml:"database"`
	Policy     policy.Config     `toml:"policy"`
	Notes      notes.Config      `toml:"notes"`
	Pagination pagination.Config `toml:"pagination"`
	Version    string            `toml:"version"`
}

// Env returns the ASSAY_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvAssayEnv); env != "" {
		return env
	}
	return "local"
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and
// environment variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Database.Merge(&overlay.Database)
	c.Policy.Merge(&overlay.Policy)
	c.Notes.Merge(&overlay.Notes)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *Config) finalize() error {
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if v := os.Getenv(EnvAssayVersion); v != "" {
		c.Version = v
	}

	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Policy.Finalize(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if err := c.Notes.Finalize(); err != nil {
		return fmt.Errorf("notes: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvAssayEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
