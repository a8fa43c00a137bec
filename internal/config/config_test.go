// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, duration parsing, and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ember.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 50*time.Millisecond, cfg.Session.ThrottleWindow)
	assert.Equal(t, 100, cfg.Session.HistoryLimit)
	assert.Equal(t, 256, cfg.Session.QueueCapacity)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.History.Path)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
session:
  throttle_window: "25ms"
  history_limit: 50
  queue_capacity: 128
history:
  path: "/tmp/ember-test/history.db"
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25*time.Millisecond, cfg.Session.ThrottleWindow)
	assert.Equal(t, 50, cfg.Session.HistoryLimit)
	assert.Equal(t, 128, cfg.Session.QueueCapacity)
	assert.Equal(t, "/tmp/ember-test/history.db", cfg.History.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: "warn"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 50*time.Millisecond, cfg.Session.ThrottleWindow)
	assert.Equal(t, 100, cfg.Session.HistoryLimit)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("EMBER_TEST_HISTORY", "/data/history.db")

	path := writeConfig(t, `
history:
  path: "${EMBER_TEST_HISTORY}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/history.db", cfg.History.Path)
}

func TestLoad_UnsetEnvVarBecomesEmpty(t *testing.T) {
	path := writeConfig(t, `
history:
  path: "${EMBER_DEFINITELY_UNSET_VAR}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.History.Path)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
session:
  throttle_window: "fast"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttle_window")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero throttle window", func(c *Config) { c.Session.ThrottleWindow = 0 }},
		{"zero history limit", func(c *Config) { c.Session.HistoryLimit = 0 }},
		{"negative queue capacity", func(c *Config) { c.Session.QueueCapacity = -1 }},
		{"bad logging format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
