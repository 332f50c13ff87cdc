// Package config loads server configuration and the live-reloadable theme
// values file.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration loaded from YAML.
type Config struct {
	// Address is the HTTP listen address.
	Address string `yaml:"address"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// ThemeFile is the path to the theme values file. When set, the server
	// watches it and pushes changes into every session's theme provider.
	ThemeFile string `yaml:"theme_file"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Address:  ":8080",
		LogLevel: "info",
	}
}

// Load reads and validates a YAML configuration file. Unset fields keep
// their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	if c.Address == "" {
		return fmt.Errorf("config: address must not be empty")
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Theme is the live-reloadable values file published to component trees
// through a context provider.
type Theme struct {
	// Name is the theme name, e.g. "light" or "dark".
	Name string `yaml:"name"`

	// Accent is the accent color, as a CSS color value.
	Accent string `yaml:"accent"`
}

// DefaultTheme is used when no theme file is configured.
func DefaultTheme() Theme {
	return Theme{Name: "light", Accent: "#2563eb"}
}

// LoadTheme reads a theme values file.
func LoadTheme(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultTheme(), fmt.Errorf("config: read theme %s: %w", path, err)
	}
	theme, err := parseTheme(data)
	if err != nil {
		return theme, fmt.Errorf("config: parse theme %s: %w", path, err)
	}
	return theme, nil
}

func parseTheme(data []byte) (Theme, error) {
	theme := DefaultTheme()
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return theme, err
	}
	return theme, nil
}
