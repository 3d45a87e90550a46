package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:8000", cfg.GetServerAddress())
	assert.Equal(t, "memory", cfg.Status.Backend)
	assert.Equal(t, 100*time.Millisecond, cfg.Gateway.LivenessInterval)
	assert.Equal(t, 60*time.Second, cfg.Gateway.IdleTimeout)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"no workers", func(c *Config) { c.Executor.Workers = 0 }, "workers must be positive"},
		{"no queue", func(c *Config) { c.Executor.QueueSize = -1 }, "queue size must be positive"},
		{"unknown backend", func(c *Config) { c.Status.Backend = "etcd" }, "unknown status backend"},
		{"redis without addr", func(c *Config) {
			c.Status.Backend = "redis"
			c.Status.Redis.Addr = ""
		}, "requires an address"},
		{"zero ttl", func(c *Config) { c.Status.TTL = 0 }, "TTL must be positive"},
		{"zero liveness", func(c *Config) { c.Gateway.LivenessInterval = 0 }, "liveness interval"},
		{"zero idle timeout", func(c *Config) { c.Gateway.IdleTimeout = 0 }, "idle timeout"},
		{"bad timezone", func(c *Config) { c.Defaults.Timezone = "Mars/Olympus" }, "invalid default timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := DefaultConfig
	cfg.Defaults.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.Defaults.Timezone = "UTC"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadConfigAppliesEnvOverrides(t *testing.T) {
	t.Setenv("NODEFLOW_CONFIG_PATH", "")
	t.Setenv("NODEFLOW_SERVER_ADDRESS", "127.0.0.1")
	t.Setenv("NODEFLOW_STATUS_BACKEND", "memory")
	t.Setenv("NODEFLOW_LOG_LEVEL", "DEBUG")

	cfg, source, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "built-in defaults", source)
	assert.Equal(t, "127.0.0.1:8000", cfg.GetServerAddress())
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nodeflow-config.yml")
	content := `
version: "1.0"
server:
  address: "10.0.0.5"
  port: 9200
executor:
  workers: 2
  queueSize: 16
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("NODEFLOW_CONFIG_PATH", path)
	t.Setenv("NODEFLOW_SERVER_ADDRESS", "")

	cfg, source, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, path, source)
	assert.Equal(t, "10.0.0.5:9200", cfg.GetServerAddress())
	assert.Equal(t, 2, cfg.Executor.Workers)
	// Fields the file omits keep their defaults.
	assert.Equal(t, "memory", cfg.Status.Backend)
	assert.Equal(t, time.Hour, cfg.Status.TTL)
}

func TestLoadClientConfigDefaultsToLocalhost(t *testing.T) {
	t.Setenv("NFX_CONFIG_PATH", "")
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadClientConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	node, err := cfg.GetNode("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:8000", node.Address)

	_, err = cfg.GetNode("prod")
	assert.Error(t, err)
}

func TestLoadClientConfigParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nfx-config.yml")
	content := `
version: "1.0"
nodes:
  default:
    address: "localhost:8000"
  prod:
    address: "analysis.internal:8000"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)

	node, err := cfg.GetNode("prod")
	require.NoError(t, err)
	assert.Equal(t, "analysis.internal:8000", node.Address)
}
