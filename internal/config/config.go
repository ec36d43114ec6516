// Package config loads TSBridge session configuration from a TOML file
// and watches it for live changes.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the session configuration, read once at startup.
type Config struct {
	// Server is the tsserver launch configuration.
	Server ServerConfig `toml:"server"`

	// Completion settings.
	Completion CompletionConfig `toml:"completion"`

	// Diagnostics settings.
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `toml:"log_level"`
}

// ServerConfig defines how to start the analysis subprocess.
type ServerConfig struct {
	Command        string            `toml:"command"`
	Args           []string          `toml:"args"`
	Env            map[string]string `toml:"env"`
	WorkDir        string            `toml:"workdir"`
	RequestTimeout Duration          `toml:"request_timeout"`
}

// CompletionConfig controls the completion pipeline.
type CompletionConfig struct {
	// DetailThreshold is the maximum candidate count that still pays for
	// per-entry detail elaboration.
	DetailThreshold int `toml:"detail_threshold"`

	// ExpandSnippets enables snippet-insertion text for callable entries.
	ExpandSnippets bool `toml:"expand_snippets"`
}

// DiagnosticsConfig controls the diagnostic host.
type DiagnosticsConfig struct {
	Enabled  bool     `toml:"enabled"`
	Debounce Duration `toml:"debounce"`
}

// Duration is a TOML-friendly time.Duration ("150ms", "2s").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Command:        "tsserver",
			RequestTimeout: Duration(10 * time.Second),
		},
		Completion: CompletionConfig{
			DetailThreshold: 30,
			ExpandSnippets:  false,
		},
		Diagnostics: DiagnosticsConfig{
			Enabled:  true,
			Debounce: Duration(150 * time.Millisecond),
		},
		LogLevel: "info",
	}
}

// Load reads configuration from path, layered over defaults. A missing
// file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return Default(), fmt.Errorf("config file %s: %w", path, err)
	}

	return cfg, nil
}

// validate rejects values the bridge cannot operate with.
func (c Config) validate() error {
	if c.Server.Command == "" {
		return fmt.Errorf("server.command must not be empty")
	}
	if c.Completion.DetailThreshold < 0 {
		return fmt.Errorf("completion.detail_threshold must not be negative")
	}
	if c.Diagnostics.Debounce.Duration() < 0 {
		return fmt.Errorf("diagnostics.debounce must not be negative")
	}
	return nil
}
