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
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Docker    DockerConfig    `mapstructure:"docker"`
	Log       LogConfig       `mapstructure:"log"`
	Stacks    StacksConfig    `mapstructure:"stacks"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
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

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StacksConfig holds stack runtime configuration.
type StacksConfig struct {
	// ConfigDir is the base directory for per-stack rendered config files.
	ConfigDir string `mapstructure:"config_dir"`

	// StopTimeout is the grace period containers get before SIGKILL on stop.
	StopTimeout time.Duration `mapstructure:"stop_timeout"`

	// PullPolicy controls when stack starts pull images.
	// "missing" - Pull only images absent from the local daemon (default)
	// "always" - Pull every image on each start
	// "never" - Never pull; starts fail if an image is absent
	PullPolicy string `mapstructure:"pull_policy"`
}

// MonitorConfig holds background health monitor configuration.
type MonitorConfig struct {
	// Enabled determines if the periodic stack monitor runs.
	Enabled bool `mapstructure:"enabled"`

	// Interval is how often to refresh running stacks.
	Interval time.Duration `mapstructure:"interval"`

	// MaxConcurrent is the max number of stacks refreshed at once.
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// RateLimitConfig holds API rate limiting configuration.
type RateLimitConfig struct {
	// Enabled determines if /api/v1 requests are rate limited.
	Enabled bool `mapstructure:"enabled"`

	// Limit is the number of requests allowed per client per window.
	Limit int `mapstructure:"limit"`

	// Window is the fixed window the limit applies to.
	Window time.Duration `mapstructure:"window"`
}

// =============================================================================
// Config Loading
// =============================================================================

// Defaults that data_dir relocation needs to recognize.
const (
	defaultDSN       = "./data/stackd.db"
	defaultConfigDir = "./data/configs"
)

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("database.dsn", defaultDSN)
	v.SetDefault("docker.host", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("stacks.config_dir", defaultConfigDir)
	v.SetDefault("stacks.stop_timeout", "10s")
	v.SetDefault("stacks.pull_policy", "missing")
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.interval", "30s")
	v.SetDefault("monitor.max_concurrent", 5)
	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.limit", 120)
	v.SetDefault("ratelimit.window", "1m")

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
	v.SetEnvPrefix("STACKD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// A single data_dir relocates the database and the config directory
	// together. Explicit database.dsn or stacks.config_dir settings win.
	if dataDir := v.GetString("data_dir"); dataDir != "" {
		if cfg.Database.DSN == defaultDSN {
			cfg.Database.DSN = filepath.Join(dataDir, "stackd.db")
		}
		if cfg.Stacks.ConfigDir == defaultConfigDir {
			cfg.Stacks.ConfigDir = filepath.Join(dataDir, "configs")
		}
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
