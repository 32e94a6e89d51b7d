package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// envOverride names the environment variable that pins the config file
// location, bypassing the search order entirely.
const envOverride = "SHOWRUNNER_CONFIG"

// DefaultPath is the per-user config location, following the platform
// convention (XDG on Linux, Application Support on macOS).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./config.toml"
	}
	return filepath.Join(dir, "showrunner", "config.toml")
}

func searchPaths() []string {
	return []string{
		"./config.toml",
		DefaultPath(),
		"/etc/showrunner/config.toml",
	}
}

// Discover locates the config file. SHOWRUNNER_CONFIG wins when set,
// and pointing it at a missing file is an error rather than a silent
// fallthrough. Otherwise the working directory, the user config dir,
// and /etc are tried in that order.
func Discover() (string, error) {
	if override := os.Getenv(envOverride); override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", fmt.Errorf("%s=%s: %w", envOverride, override, err)
		}
		return override, nil
	}

	paths := searchPaths()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("config not found, checked: %s", strings.Join(paths, ", "))
}
