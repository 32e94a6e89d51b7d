package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validProviders = map[string]bool{
	"tvmaze": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	if !validProviders[c.Provider.Name] {
		errs = append(errs, fmt.Sprintf("provider.name: unknown provider %q", c.Provider.Name))
	}

	if c.Check.Schedule != "" {
		if _, err := cron.ParseStandard(c.Check.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("check.schedule: %v", err))
		}
	}

	if c.API.BlockForMS < 0 {
		errs = append(errs, fmt.Sprintf("api.block_for_ms: must not be negative, got %d", c.API.BlockForMS))
	}

	return errs
}
