// Package config handles application configuration from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Analysis   AnalysisConfig  `yaml:"analysis"`
	History    HistoryConfig   `yaml:"history"`
	Stats      StatsConfig     `yaml:"stats"`
	Auth       AuthConfig      `yaml:"auth"`
	RateLimits RateLimitConfig `yaml:"rate_limits"`
	Logging    LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port     int  `yaml:"port"`
	EnableUI bool `yaml:"enable_ui"`
}

// AnalysisConfig points at the external detection service.
type AnalysisConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 disables pacing
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
}

type HistoryConfig struct {
	Driver   string `yaml:"driver"` // file, sqlite
	Path     string `yaml:"path"` // directory for file, database file for sqlite
	Capacity int    `yaml:"capacity"`
}

type StatsConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

type AuthConfig struct {
	Required   bool          `yaml:"required"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"default_requests_per_minute"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8080,
			EnableUI: true,
		},
		Analysis: AnalysisConfig{
			BaseURL:        "http://localhost:5000",
			Timeout:        2 * time.Minute,
			MaxUploadBytes: 100 << 20,
		},
		History: HistoryConfig{
			Driver:   "file",
			Path:     "./data",
			Capacity: 50,
		},
		Stats: StatsConfig{
			RefreshInterval: 30 * time.Second,
		},
		Auth: AuthConfig{
			Required:   false,
			SessionTTL: 24 * time.Hour,
		},
		RateLimits: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s (run 'veritas config init' to create one)", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration on top of the defaults.
func Parse(data []byte) (*Config, error) {
	content := interpolateEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// GenerateSample creates a sample configuration file.
func GenerateSample(path string) error {
	sample := `# Veritas Configuration

server:
  port: 8080
  enable_ui: true

analysis:
  base_url: http://localhost:5000  # or ${VERITAS_ANALYSIS_URL}
  timeout: 2m
  requests_per_second: 0   # 0 disables client-side pacing
  max_upload_bytes: 104857600

history:
  driver: file   # file or sqlite
  path: ./data
  # driver: sqlite
  # path: ./data/veritas.db
  capacity: 50

stats:
  refresh_interval: 30s

auth:
  required: false
  session_ttl: 24h

rate_limits:
  default_requests_per_minute: 60

logging:
  level: info  # debug, info, warn, error
  format: json # json or text
`
	return os.WriteFile(path, []byte(sample), 0644)
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Analysis.BaseURL == "" || strings.HasPrefix(c.Analysis.BaseURL, "${") {
		return fmt.Errorf("analysis base_url is required")
	}
	if !strings.HasPrefix(c.Analysis.BaseURL, "http://") && !strings.HasPrefix(c.Analysis.BaseURL, "https://") {
		return fmt.Errorf("analysis base_url must be http(s): %s", c.Analysis.BaseURL)
	}
	if c.Analysis.Timeout <= 0 {
		return fmt.Errorf("analysis timeout must be positive")
	}
	if c.Analysis.MaxUploadBytes <= 0 {
		return fmt.Errorf("analysis max_upload_bytes must be positive")
	}
	if c.Analysis.RequestsPerSecond < 0 {
		return fmt.Errorf("analysis requests_per_second must not be negative")
	}

	if c.History.Driver != "file" && c.History.Driver != "sqlite" {
		return fmt.Errorf("unsupported history driver: %s", c.History.Driver)
	}
	if c.History.Path == "" {
		return fmt.Errorf("history path is required")
	}
	if c.History.Capacity < 1 {
		return fmt.Errorf("history capacity must be at least 1")
	}

	if c.Stats.RefreshInterval <= 0 {
		return fmt.Errorf("stats refresh_interval must be positive")
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth session_ttl must be positive")
	}

	if c.RateLimits.RequestsPerMinute < 1 {
		return fmt.Errorf("rate_limits default_requests_per_minute must be at least 1")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("unsupported log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("unsupported log format: %s", c.Logging.Format)
	}

	return nil
}

// interpolateEnvVars replaces ${VAR_NAME} with environment variable values.
func interpolateEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return match // Keep original if not set
	})
}
