// Package config handles TOML configuration loading with environment
// variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Provider ProviderConfig `toml:"provider"`
	Check    CheckConfig    `toml:"check"`
	API      APIConfig      `toml:"api"`
	Log      LogConfig      `toml:"log"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type ProviderConfig struct {
	Name string `toml:"name"`
	URL  string `toml:"url"` // base URL override, mainly for testing
}

// CheckConfig controls the scheduled watchlist sweep.
type CheckConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // cron expression, e.g. "0 */6 * * *"
}

type APIConfig struct {
	// BlockForMS is how long a deferred request handler waits for its
	// job before answering pending, in milliseconds.
	BlockForMS int `toml:"block_for_ms"`
}

// LogConfig configures optional file logging with rotation. An empty
// file means log to stderr only.
type LogConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Load reads, substitutes, parses, and validates the configuration
// file. Unresolved environment variables and validation failures are
// reported together in a *ConfigError.
func Load(path string) (*Config, error) {
	cfg, missing, err := parse(path)
	if err != nil {
		return nil, err
	}

	cerr := &ConfigError{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cerr.HasErrors() {
		return nil, cerr
	}
	return cfg, nil
}

// LoadWithoutValidation reads and parses the configuration file,
// skipping validation. Used by tooling that inspects partial configs.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, _, err := parse(path)
	return cfg, err
}

func parse(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, missing, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8183
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/showrunner.db"
	}
	if c.Provider.Name == "" {
		c.Provider.Name = "tvmaze"
	}
	if c.Check.Schedule == "" {
		c.Check.Schedule = "0 */6 * * *"
	}
	if c.API.BlockForMS == 0 {
		c.API.BlockForMS = 1500
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 28
	}
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable
// values and reports the names it could not resolve.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := match[2 : len(match)-1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		missing = append(missing, name)
		return match
	})
	return out, missing
}
