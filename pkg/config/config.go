// Package config loads the nodeflow server and client configuration from
// YAML files plus environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	Version  string         `yaml:"version" json:"version"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Executor ExecutorConfig `yaml:"executor" json:"executor"`
	Status   StatusConfig   `yaml:"status" json:"status"`
	Gateway  GatewayConfig  `yaml:"gateway" json:"gateway"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Defaults DefaultsConfig `yaml:"defaults" json:"defaults"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address      string        `yaml:"address" json:"address"`
	Port         int           `yaml:"port" json:"port"`
	Mode         string        `yaml:"mode" json:"mode"`
	ReadTimeout  time.Duration `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout" json:"writeTimeout"`
}

// ExecutorConfig holds the worker pool configuration
type ExecutorConfig struct {
	Workers   int `yaml:"workers" json:"workers"`     // parallel graph executions
	QueueSize int `yaml:"queueSize" json:"queueSize"` // pending task backlog
}

// StatusConfig holds the status plane configuration
type StatusConfig struct {
	Backend string        `yaml:"backend" json:"backend"` // "memory" or "redis"
	TTL     time.Duration `yaml:"ttl" json:"ttl"`         // latest-message cache lifetime
	Redis   RedisConfig   `yaml:"redis" json:"redis"`
}

// RedisConfig holds connection settings for the Redis status backend
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// GatewayConfig holds WebSocket gateway tuning
type GatewayConfig struct {
	LivenessInterval time.Duration `yaml:"livenessInterval" json:"livenessInterval"` // client poll cadence
	IdleTimeout      time.Duration `yaml:"idleTimeout" json:"idleTimeout"`           // pub/sub read timeout
	WriteTimeout     time.Duration `yaml:"writeTimeout" json:"writeTimeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// DefaultsConfig holds interpreter-wide defaults
type DefaultsConfig struct {
	Timezone string `yaml:"timezone" json:"timezone"` // default tz offset for datetimes
}

// DefaultConfig provides default configuration values
var DefaultConfig = Config{
	Version: "1.0",
	Server: ServerConfig{
		Address:      "0.0.0.0",
		Port:         8000,
		Mode:         "server",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	},
	Executor: ExecutorConfig{
		Workers:   4,
		QueueSize: 128,
	},
	Status: StatusConfig{
		Backend: "memory",
		TTL:     time.Hour,
		Redis: RedisConfig{
			Addr: "localhost:6379",
			DB:   0,
		},
	},
	Gateway: GatewayConfig{
		LivenessInterval: 100 * time.Millisecond,
		IdleTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
	},
	Logging: LoggingConfig{
		Level:  "INFO",
		Format: "text",
		Output: "stdout",
	},
	Defaults: DefaultsConfig{
		Timezone: "UTC",
	},
}

// GetServerAddress returns the complete server address in "host:port" format.
// Example: "0.0.0.0:8000" or "localhost:8080"
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Location resolves the configured default timezone. Falls back to UTC when
// the name does not resolve.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Defaults.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadConfig loads the main server configuration from file and environment variables.
//  1. Path specified in NODEFLOW_CONFIG_PATH environment variable
//  2. ./config/nodeflow-config.yml
//  3. ./nodeflow-config.yml
//  4. /etc/nodeflow/nodeflow-config.yml
//
// Applies environment variable overrides for server address, mode, status
// backend and logging. Validates the final configuration before returning.
// Returns (config, configPath, error) - configPath indicates source of configuration.
func LoadConfig() (*Config, string, error) {
	config := DefaultConfig

	path, err := loadFromFile(&config)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config file: %w", err)
	}

	if val := os.Getenv("NODEFLOW_SERVER_ADDRESS"); val != "" {
		config.Server.Address = val
	}
	if val := os.Getenv("NODEFLOW_MODE"); val != "" {
		config.Server.Mode = val
	}
	if val := os.Getenv("NODEFLOW_STATUS_BACKEND"); val != "" {
		config.Status.Backend = val
	}
	if val := os.Getenv("NODEFLOW_REDIS_ADDR"); val != "" {
		config.Status.Redis.Addr = val
	}
	if val := os.Getenv("NODEFLOW_LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("NODEFLOW_LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}

	if e := config.Validate(); e != nil {
		return nil, "", fmt.Errorf("configuration validation failed: %w", e)
	}

	return &config, path, nil
}

// loadFromFile loads configuration from the first available YAML file.
// Returns the path of the loaded file or "built-in defaults" if no file found.
// Does not return error if no file is found - uses defaults instead.
func loadFromFile(config *Config) (string, error) {
	configPaths := []string{
		os.Getenv("NODEFLOW_CONFIG_PATH"),
		"./config/nodeflow-config.yml",
		"./nodeflow-config.yml",
		"/etc/nodeflow/nodeflow-config.yml",
	}

	for _, path := range configPaths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return "", fmt.Errorf("failed to parse config file %s: %w", path, err)
		}

		return path, nil
	}

	return "built-in defaults", nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Executor.Workers <= 0 {
		return fmt.Errorf("executor workers must be positive, got %d", c.Executor.Workers)
	}
	if c.Executor.QueueSize <= 0 {
		return fmt.Errorf("executor queue size must be positive, got %d", c.Executor.QueueSize)
	}

	switch c.Status.Backend {
	case "memory":
	case "redis":
		if c.Status.Redis.Addr == "" {
			return fmt.Errorf("redis status backend requires an address")
		}
	default:
		return fmt.Errorf("unknown status backend: %s", c.Status.Backend)
	}

	if c.Status.TTL <= 0 {
		return fmt.Errorf("status TTL must be positive, got %v", c.Status.TTL)
	}

	if c.Gateway.LivenessInterval <= 0 {
		return fmt.Errorf("gateway liveness interval must be positive, got %v", c.Gateway.LivenessInterval)
	}
	if c.Gateway.IdleTimeout <= 0 {
		return fmt.Errorf("gateway idle timeout must be positive, got %v", c.Gateway.IdleTimeout)
	}

	if _, err := time.LoadLocation(c.Defaults.Timezone); err != nil {
		return fmt.Errorf("invalid default timezone %q: %w", c.Defaults.Timezone, err)
	}

	return nil
}

// ClientConfig represents the nfx client configuration
type ClientConfig struct {
	Version string           `yaml:"version"`
	Nodes   map[string]*Node `yaml:"nodes"`
}

// Node represents a single server endpoint for the nfx client
type Node struct {
	Address string `yaml:"address"` // host:port of a nodeflow server
}

// LoadClientConfig loads the nfx client configuration from configPath, or
// from the usual search locations when configPath is empty.
func LoadClientConfig(configPath string) (*ClientConfig, error) {
	paths := []string{
		configPath,
		os.Getenv("NFX_CONFIG_PATH"),
		"./nfx-config.yml",
		os.ExpandEnv("$HOME/.nfx/nfx-config.yml"),
	}

	for _, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var cfg ClientConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse client config %s: %w", path, err)
		}
		if len(cfg.Nodes) == 0 {
			return nil, fmt.Errorf("client config %s defines no nodes", path)
		}
		return &cfg, nil
	}

	// No file found: default to a local server so nfx works out of the box.
	return &ClientConfig{
		Version: "1.0",
		Nodes: map[string]*Node{
			"default": {Address: "localhost:8000"},
		},
	}, nil
}

// GetNode returns the named node, falling back to "default".
func (c *ClientConfig) GetNode(name string) (*Node, error) {
	if name == "" {
		name = "default"
	}
	node, ok := c.Nodes[name]
	if !ok {
		return nil, fmt.Errorf("node %q not found in client configuration", name)
	}
	return node, nil
}
