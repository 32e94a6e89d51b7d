package config

import "strings"

// ConfigError collects everything wrong with a config file in one
// error, so the operator sees the full list instead of fixing problems
// one restart at a time.
type ConfigError struct {
	Path    string   // file the problems were found in
	Missing []string // ${VAR} references with no value in the environment
	Errors  []string // validation failures
}

// HasErrors reports whether the error carries anything.
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}

func (e *ConfigError) Error() string {
	if !e.HasErrors() {
		return ""
	}

	var b strings.Builder
	b.WriteString("invalid configuration")
	if e.Path != "" {
		b.WriteString(" in ")
		b.WriteString(e.Path)
	}
	if len(e.Missing) > 0 {
		b.WriteString("\nunset environment variables: ")
		b.WriteString(strings.Join(e.Missing, ", "))
	}
	for _, msg := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(msg)
	}
	return b.String()
}
