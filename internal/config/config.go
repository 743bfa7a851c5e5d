// Package config provides configuration loading for thoughtd.
//
// Configuration comes from hardcoded defaults, an optional YAML or TOML file, and
// environment variables, in increasing order of precedence. The storage
// directory and default project also honour MCP_STORAGE_DIR and
// MCP_PROJECT_ID.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Environment variables read directly, outside the SECTION_FIELD mapping.
const (
	EnvStorageDir = "MCP_STORAGE_DIR"
	EnvProjectID  = "MCP_PROJECT_ID"
)

// Corrupt session file policies.
const (
	CorruptPolicyFail       = "fail"
	CorruptPolicyQuarantine = "quarantine"
)

// Config holds the complete thoughtd configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	HTTP      HTTPConfig      `koanf:"http"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig identifies the MCP server.
type ServerConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// StorageConfig controls where and how thought histories are persisted.
type StorageConfig struct {
	Dir           string   `koanf:"dir"`
	ProjectID     string   `koanf:"project_id"`
	LockTimeout   Duration `koanf:"lock_timeout"`
	CorruptPolicy string   `koanf:"corrupt_policy"`

	// Watch reloads histories changed on disk by other processes.
	Watch bool `koanf:"watch"`
}

// HTTPConfig controls the optional read-only inspection API.
type HTTPConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`

	// RateLimit is requests per second per client on /api routes; 0 disables.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// LoggingConfig selects log level and encoding.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Endpoint        string   `koanf:"endpoint"`
	Protocol        string   `koanf:"protocol"`
	ServiceName     string   `koanf:"service_name"`
	Insecure        bool     `koanf:"insecure"`
	AuthToken       Secret   `koanf:"auth_token"`
	SamplingRate    float64  `koanf:"sampling_rate"`
	MetricsInterval Duration `koanf:"metrics_interval"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// Load loads configuration from environment variables with defaults.
//
// Environment variables:
//   - MCP_STORAGE_DIR: storage directory (default: ~/.mcp_sequential_thinking)
//   - MCP_PROJECT_ID: default project (default: default)
//   - STORAGE_LOCK_TIMEOUT: companion lock wait (default: 10s)
//   - STORAGE_CORRUPT_POLICY: fail or quarantine (default: fail)
//   - STORAGE_WATCH: reload histories changed by other processes (default: false)
//   - HTTP_ENABLED, HTTP_HOST, HTTP_PORT: inspection API (default: off, localhost:9091)
//   - HTTP_RATE_LIMIT, HTTP_RATE_BURST: per-client API rate limit (default: 20/s, burst 40)
//   - LOGGING_LEVEL, LOGGING_FORMAT: log level and encoding (default: info, json)
//   - TELEMETRY_ENABLED, TELEMETRY_ENDPOINT: OTLP export (default: off, localhost:4317)
//
// Example:
//
//	cfg := config.Load()
//	fmt.Println("Storage dir:", cfg.Storage.Dir)
func Load() *Config {
	cfg := Default()

	cfg.Storage.Dir = getEnvString("STORAGE_DIR", cfg.Storage.Dir)
	cfg.Storage.ProjectID = getEnvString("STORAGE_PROJECT_ID", cfg.Storage.ProjectID)
	cfg.Storage.LockTimeout = Duration(getEnvDuration("STORAGE_LOCK_TIMEOUT", cfg.Storage.LockTimeout.Duration()))
	cfg.Storage.CorruptPolicy = getEnvString("STORAGE_CORRUPT_POLICY", cfg.Storage.CorruptPolicy)
	cfg.Storage.Watch = getEnvBool("STORAGE_WATCH", cfg.Storage.Watch)

	cfg.HTTP.Enabled = getEnvBool("HTTP_ENABLED", cfg.HTTP.Enabled)
	cfg.HTTP.Host = getEnvString("HTTP_HOST", cfg.HTTP.Host)
	cfg.HTTP.Port = getEnvInt("HTTP_PORT", cfg.HTTP.Port)
	cfg.HTTP.RateLimit = getEnvFloat("HTTP_RATE_LIMIT", cfg.HTTP.RateLimit)
	cfg.HTTP.RateBurst = getEnvInt("HTTP_RATE_BURST", cfg.HTTP.RateBurst)

	cfg.Logging.Level = getEnvString("LOGGING_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvString("LOGGING_FORMAT", cfg.Logging.Format)

	cfg.Telemetry.Enabled = getEnvBool("TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = getEnvString("TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Protocol = getEnvString("TELEMETRY_PROTOCOL", cfg.Telemetry.Protocol)
	cfg.Telemetry.Insecure = getEnvBool("TELEMETRY_INSECURE", cfg.Telemetry.Insecure)
	cfg.Telemetry.AuthToken = Secret(getEnvString("TELEMETRY_AUTH_TOKEN", cfg.Telemetry.AuthToken.Value()))

	applyMCPEnv(cfg)
	return cfg
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:    "thoughtd",
			Version: "0.1.0",
		},
		Storage: StorageConfig{
			Dir:           defaultStorageDir(),
			ProjectID:     "default",
			LockTimeout:   Duration(10 * time.Second),
			CorruptPolicy: CorruptPolicyFail,
		},
		HTTP: HTTPConfig{
			Enabled:         false,
			Host:            "localhost",
			Port:            9091,
			ShutdownTimeout: Duration(5 * time.Second),
			RateLimit:       20,
			RateBurst:       40,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:         false,
			Endpoint:        "localhost:4317",
			Protocol:        "grpc",
			ServiceName:     "thoughtd",
			Insecure:        true,
			SamplingRate:    1.0,
			MetricsInterval: Duration(15 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
		},
	}
}

// Validate validates the configuration.
//
// Returns an error if:
//   - The storage directory is empty
//   - The corrupt policy is unknown
//   - The lock timeout is not positive
//   - The HTTP port is not between 1 and 65535 (when HTTP is enabled)
//   - The telemetry sampling rate is outside [0, 1]
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.Dir) == "" {
		return errors.New("storage dir is required")
	}
	if c.Storage.CorruptPolicy != CorruptPolicyFail && c.Storage.CorruptPolicy != CorruptPolicyQuarantine {
		return fmt.Errorf("invalid corrupt policy %q (must be %q or %q)",
			c.Storage.CorruptPolicy, CorruptPolicyFail, CorruptPolicyQuarantine)
	}
	if c.Storage.LockTimeout.Duration() <= 0 {
		return errors.New("lock timeout must be positive")
	}

	if c.HTTP.Enabled {
		if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
			return fmt.Errorf("invalid http port: %d (must be 1-65535)", c.HTTP.Port)
		}
		if c.HTTP.ShutdownTimeout.Duration() <= 0 {
			return errors.New("http shutdown timeout must be positive")
		}
		if c.HTTP.RateLimit < 0 || c.HTTP.RateBurst < 0 {
			return errors.New("http rate limit and burst must not be negative")
		}
	}

	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		return fmt.Errorf("telemetry sampling rate must be between 0 and 1, got %f", c.Telemetry.SamplingRate)
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry endpoint required when telemetry is enabled")
	}
	if p := c.Telemetry.Protocol; p != "" && p != "grpc" && p != "http/protobuf" {
		return fmt.Errorf("invalid telemetry protocol %q (must be grpc or http/protobuf)", p)
	}

	return nil
}

// applyMCPEnv applies MCP_STORAGE_DIR and MCP_PROJECT_ID, which take
// precedence over every other source.
func applyMCPEnv(cfg *Config) {
	if dir := os.Getenv(EnvStorageDir); dir != "" {
		cfg.Storage.Dir = dir
	}
	if pid := os.Getenv(EnvProjectID); pid != "" {
		cfg.Storage.ProjectID = pid
	}
	cfg.Storage.Dir = expandHome(cfg.Storage.Dir)
}

func defaultStorageDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mcp_sequential_thinking"
	}
	return filepath.Join(home, ".mcp_sequential_thinking")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
