package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// The shipped sample keeps its comments, so WriteDefault emits the
// embedded file verbatim instead of encoding a Config.
//
//go:embed default_config.toml
var defaultConfig string

// WriteDefault installs the commented sample config at path, creating
// parent directories as needed.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfig), 0o644)
}

// Write persists the current values as TOML, without the sample's
// commentary.
func (c *Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := toml.NewEncoder(f)
	enc.Indent = "  "
	if err := enc.Encode(c); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}
