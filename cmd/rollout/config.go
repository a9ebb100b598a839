package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Docker    DockerConfig    `mapstructure:"docker"`
	Log       LogConfig       `mapstructure:"log"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds the audit store configuration.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`

	// MigrationsDir points at the SQL migration scripts used by the
	// databaseMigration capability to judge target database readiness.
	// Empty disables the check.
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// DockerConfig holds container runtime configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProbeConfig holds health probe tuning.
type ProbeConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	Retries    int           `mapstructure:"retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// ProvidersConfig holds cloud provider credentials for standby staging.
// All fields are optional; staging is disabled when no credential is set.
type ProvidersConfig struct {
	AWSAccessKeyID     string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key"`
	DigitalOceanToken  string `mapstructure:"digitalocean_token"`
	HetznerToken       string `mapstructure:"hetzner_token"`
}

// Enabled reports whether any provider credential is configured.
func (c ProvidersConfig) Enabled() bool {
	return c.AWSAccessKeyID != "" || c.DigitalOceanToken != "" || c.HetznerToken != ""
}

// SecretsConfig holds credential sealing configuration.
type SecretsConfig struct {
	// SealingKey is the 32-byte key for sealing provisioned credentials.
	// Must be exactly 32 bytes for AES-256-GCM.
	// Set via ROLLOUT_SECRETS_SEALING_KEY environment variable.
	SealingKey string `mapstructure:"sealing_key"`
}

// =============================================================================
// Configuration Loading
// =============================================================================

// LoadConfig loads configuration from file (optional) and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("database.dsn", "./data/rollout.db")
	v.SetDefault("database.migrations_dir", "")
	v.SetDefault("docker.host", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Probe defaults
	v.SetDefault("probe.timeout", "10s")
	v.SetDefault("probe.retries", 2)
	v.SetDefault("probe.retry_delay", "1s")

	// Provider credentials come from the environment
	v.SetDefault("providers.aws_access_key_id", "")
	v.SetDefault("providers.aws_secret_access_key", "")
	v.SetDefault("providers.digitalocean_token", "")
	v.SetDefault("providers.hetzner_token", "")

	v.SetDefault("secrets.sealing_key", "")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("ROLLOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// A data dir shorthand derives the DSN unless one was given explicitly
	if dataDir := v.GetString("data_dir"); dataDir != "" && !v.IsSet("database.dsn") {
		cfg.Database.DSN = filepath.Join(dataDir, "rollout.db")
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
