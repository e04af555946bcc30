// Package config provides configuration management for coursebook.
//
// Config file locations (priority order):
//  1. $COURSEBOOK_CONFIG
//  2. ./coursebook.yaml
//  3. $XDG_CONFIG_HOME/coursebook/config.yaml
//  4. ~/.config/coursebook/config.yaml
//  5. /etc/coursebook/config.yaml
//
// A .env file in the working directory is loaded first, and the
// COURSEBOOK_DB, COURSEBOOK_ADDR and COURSEBOOK_LOG_LEVEL variables override
// whatever the file says.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides
const (
	EnvDatabasePath = "COURSEBOOK_DB"
	EnvServerAddr   = "COURSEBOOK_ADDR"
	EnvLogLevel     = "COURSEBOOK_LOG_LEVEL"
)

const (
	defaultDatabasePath  = "./coursebook.db"
	defaultSchemaVersion = 1
	defaultAddr          = ":3000"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, "", err
	}

	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	return &cfg, path, nil
}

// loadDotEnv loads path into the environment if it exists. Variables that
// are already set win over the file.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDatabasePath
	}
	if c.Database.SchemaVersion <= 0 {
		c.Database.SchemaVersion = defaultSchemaVersion
	}
	if c.Database.BusyTimeout <= 0 {
		c.Database.BusyTimeout = Duration(5 * time.Second)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = Duration(10 * time.Second)
	}
	// SSE streams stay open, so no write timeout unless configured
	if c.Server.IdleTimeout <= 0 {
		c.Server.IdleTimeout = Duration(60 * time.Second)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// applyEnv lets environment variables override file values
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvServerAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	return fmt.Sprintf("Database: %s (schema v%d), Server: %s, Log: %s/%s",
		c.Database.Path, c.Database.SchemaVersion, c.Server.Addr, c.Log.Level, c.Log.Format)
}
