// ABOUTME: Configuration loading and parsing for the ember session core
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete ember session core configuration
type Config struct {
	Session SessionConfig `yaml:"session"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
}

// SessionConfig holds session store tuning
type SessionConfig struct {
	ThrottleWindow time.Duration `yaml:"-"`
	HistoryLimit   int           `yaml:"history_limit"`
	QueueCapacity  int           `yaml:"queue_capacity"`

	// Raw string value for YAML unmarshaling
	ThrottleWindowRaw string `yaml:"throttle_window"`
}

// HistoryConfig holds durable message history configuration.
// An empty path disables durable history entirely.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			ThrottleWindow: 50 * time.Millisecond,
			HistoryLimit:   100,
			QueueCapacity:  256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded and
// duration strings are parsed into time.Duration values. Fields left unset
// fall back to Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all configuration fields are usable.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Session.ThrottleWindow <= 0 {
		return fmt.Errorf("session.throttle_window must be positive")
	}
	if c.Session.HistoryLimit <= 0 {
		return fmt.Errorf("session.history_limit must be positive")
	}
	if c.Session.QueueCapacity <= 0 {
		return fmt.Errorf("session.queue_capacity must be positive")
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Session.ThrottleWindowRaw != "" {
		window, err := time.ParseDuration(cfg.Session.ThrottleWindowRaw)
		if err != nil {
			return fmt.Errorf("parsing throttle_window %q: %w", cfg.Session.ThrottleWindowRaw, err)
		}
		cfg.Session.ThrottleWindow = window
	}
	return nil
}
