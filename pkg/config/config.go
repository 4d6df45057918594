// Package config loads host settings for an embedding process: the
// backing store path, logging options, and the metrics listen address.
// It is grounded on cmd/warren's apply.go, which unmarshals a YAML file
// into a typed struct with spf13/cobra flags layered on top; here the
// YAML describes one host's database settings rather than a cluster
// resource manifest.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full set of settings a host needs to open a Database
// and expose its metrics/health endpoints. Every field has a zero value
// that Defaults fills in, so a Config read from an empty or partial
// file is still usable.
type Config struct {
	// DataDir is the directory holding the backing store file.
	DataDir string `yaml:"dataDir"`

	// QueryTimeoutSeconds is loaded from the file but not applied:
	// nothing in this module passes it to RunScript, so a statement's
	// own OutOpts.TimeoutSeconds is the only timeout that takes effect.
	QueryTimeoutSeconds float64 `yaml:"queryTimeoutSeconds"`

	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig mirrors pkg/log.Config's two knobs (level, JSON output).
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig controls the /metrics, /health, /ready, /live HTTP
// server a long-running host process exposes.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Defaults returns the configuration a bare `strata serve` should use
// with no file and no flags.
func Defaults() Config {
	return Config{
		DataDir:             "./strata-data",
		QueryTimeoutSeconds: 0,
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9090",
		},
	}
}

// Load reads and parses a YAML config file at path, starting from
// Defaults so a file may specify only the fields it wants to override.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	return cfg, nil
}
