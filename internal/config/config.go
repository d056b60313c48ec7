package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultLights are the bridge names of the two controlled lights.
var DefaultLights = []string{"Dining Room 1", "Dining Room 2"}

// Config represents the application configuration
type Config struct {
	Hue             HueConfig      `yaml:"hue"`
	Names           NamesConfig    `yaml:"names"`
	Database        DatabaseConfig `yaml:"database"`
	Log             LogConfig      `yaml:"log"`
	Server          ServerConfig   `yaml:"server"`
	Ledger          LedgerConfig   `yaml:"ledger"`
	EventBus        EventBusConfig `yaml:"eventbus"`
	Script          string         `yaml:"script"`           // Optional Lua automation script
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	Bridge       string   `yaml:"bridge"` // Empty = discover
	Token        string   `yaml:"token"`
	Timeout      Duration `yaml:"timeout"` // Per-request timeout
	RateLimitRPS float64  `yaml:"rate_limit_rps"`
	Lights       []string `yaml:"lights"` // Bridge names, slot 1 and slot 2
}

// NamesConfig controls where generated preset names come from
type NamesConfig struct {
	Enabled   *bool    `yaml:"enabled"`
	BaseURL   string   `yaml:"base_url"`
	Endpoints []string `yaml:"endpoints"`
	Timeout   Duration `yaml:"timeout"`   // Bound on the startup fetch
	CacheTTL  Duration `yaml:"cache_ttl"` // 0 = no cache
}

// IsEnabled reports whether names are fetched at startup (default: true)
func (c *NamesConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LedgerConfig contains command history settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// Retention returns the retention window
func (c *LedgerConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration from YAML, expanding environment variables and applying defaults
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./lightboard.sqlite"
	}

	// Hue defaults
	if cfg.Hue.Timeout == 0 {
		cfg.Hue.Timeout = Duration(10 * time.Second)
	}
	if cfg.Hue.RateLimitRPS == 0 {
		cfg.Hue.RateLimitRPS = 10.0 // 10 requests per second
	}
	if len(cfg.Hue.Lights) == 0 {
		cfg.Hue.Lights = append([]string(nil), DefaultLights...)
	}

	// Names defaults
	if cfg.Names.BaseURL == "" {
		cfg.Names.BaseURL = "https://www.dnd5eapi.co/api/2014/"
	}
	if len(cfg.Names.Endpoints) == 0 {
		cfg.Names.Endpoints = []string{"magic-items", "monsters", "spells"}
	}
	if cfg.Names.Timeout == 0 {
		cfg.Names.Timeout = Duration(5 * time.Second)
	}

	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate checks values that have no sensible default
func (cfg *Config) Validate() error {
	var errs []error
	if len(cfg.Hue.Lights) != 2 {
		errs = append(errs, fmt.Errorf("hue.lights: exactly 2 lights required, got %d", len(cfg.Hue.Lights)))
	}
	for i, name := range cfg.Hue.Lights {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("hue.lights[%d]: empty name", i))
		}
	}
	if cfg.Hue.RateLimitRPS < 0 {
		errs = append(errs, errors.New("hue.rate_limit_rps: must not be negative"))
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", cfg.Server.Port))
	}
	if cfg.Ledger.RetentionDays < 0 {
		errs = append(errs, errors.New("ledger.retention_days: must not be negative"))
	}
	if cfg.Ledger.CleanupInterval.Duration() < 0 {
		errs = append(errs, errors.New("ledger.cleanup_interval: must not be negative"))
	}
	return errors.Join(errs...)
}

// envPattern matches ${VAR} or ${VAR:default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
