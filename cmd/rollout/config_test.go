package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "ROLLOUT_") {
			key := strings.SplitN(kv, "=", 2)[0]
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "./data/rollout.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, 2, cfg.Probe.Retries)
	assert.Equal(t, time.Second, cfg.Probe.RetryDelay)
	assert.False(t, cfg.Providers.Enabled())
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
server:
  host: "127.0.0.1"
  port: 9000
  read_timeout: 60s
  write_timeout: 60s
  shutdown_timeout: 15s

database:
  dsn: "/tmp/test.db"

log:
  level: "debug"
  format: "text"

probe:
  timeout: 5s
  retries: 4
  retry_delay: 250ms
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/tmp/test.db", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 5*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, 4, cfg.Probe.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.Probe.RetryDelay)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("ROLLOUT_SERVER_HOST", "192.168.1.1")
	t.Setenv("ROLLOUT_SERVER_PORT", "3000")
	t.Setenv("ROLLOUT_DATABASE_DSN", "/custom/path.db")
	t.Setenv("ROLLOUT_LOG_LEVEL", "warn")
	t.Setenv("ROLLOUT_PROVIDERS_HETZNER_TOKEN", "tok-123")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.1", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/custom/path.db", cfg.Database.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "tok-123", cfg.Providers.HetznerToken)
	assert.True(t, cfg.Providers.Enabled())
}

func TestLoadConfig_DataDirDerivesDSN(t *testing.T) {
	clearEnv(t)

	t.Setenv("ROLLOUT_DATA_DIR", "/var/lib/rollout")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/var/lib/rollout", "rollout.db"), cfg.Database.DSN)
}

func TestLoadConfig_ExplicitDSNOverridesDataDir(t *testing.T) {
	clearEnv(t)

	t.Setenv("ROLLOUT_DATA_DIR", "/var/lib/rollout")
	t.Setenv("ROLLOUT_DATABASE_DSN", "/custom/path.db")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/custom/path.db", cfg.Database.DSN)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err) // Should not error, just use defaults

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		cfg := &Config{
			Log: LogConfig{Level: "info", Format: format},
		}
		assert.NotNil(t, SetupLogger(cfg), format)
	}
}

func TestSetupLogger_Levels(t *testing.T) {
	// Unknown levels fall back to info, no panic.
	for _, level := range []string{"debug", "info", "warn", "error", "invalid"} {
		cfg := &Config{
			Log: LogConfig{Level: level, Format: "json"},
		}
		assert.NotNil(t, SetupLogger(cfg), level)
	}
}

// =============================================================================
// Config Validation Tests
// =============================================================================

func TestConfig_Address(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
	}
	assert.Equal(t, "localhost:8080", cfg.Server.Address())
}

func TestProvidersConfig_Enabled(t *testing.T) {
	assert.False(t, ProvidersConfig{}.Enabled())
	assert.True(t, ProvidersConfig{AWSAccessKeyID: "AKIA..."}.Enabled())
	assert.True(t, ProvidersConfig{DigitalOceanToken: "do-tok"}.Enabled())
	assert.True(t, ProvidersConfig{HetznerToken: "hz-tok"}.Enabled())
}
