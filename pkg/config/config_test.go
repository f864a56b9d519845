package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, 8000, c.Server.Port)
	assert.Equal(t, "file", c.Model.Store)
	assert.Equal(t, 100, c.Model.Hyperparams.NEstimators)
	assert.Equal(t, 0.1, c.Model.Hyperparams.LearningRate)
	assert.Equal(t, 5, c.Model.Hyperparams.MaxDepth)
	assert.Equal(t, int64(42), c.Model.Hyperparams.Seed)
	assert.Equal(t, 0.2, c.Dataset.TestSize)
	assert.Equal(t, "none", c.Audit.Backend)
	assert.Equal(t, 2*time.Second, c.Audit.FlushInterval)
	assert.True(t, c.Metrics.Enabled)
	assert.False(t, c.KafkaEnabled())
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
environment: production
server:
  port: 9100
model:
  store: sqlite
  hyperparams:
    n_estimators: 50
audit:
  flush_interval: 750ms
metrics:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 9100, c.Server.Port)
	assert.Equal(t, "sqlite", c.Model.Store)
	assert.Equal(t, 50, c.Model.Hyperparams.NEstimators)
	assert.Equal(t, 5, c.Model.Hyperparams.MaxDepth)
	assert.Equal(t, 750*time.Millisecond, c.Audit.FlushInterval)
	assert.False(t, c.Metrics.Enabled)
}

func TestApplyEnv(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	env := map[string]string{
		"MODEL_PATH":    "/var/lib/model.bin",
		"DATASET_PATH":  "/data/d.csv",
		"AUDIT_BACKEND": "kafka",
		"KAFKA_BROKERS": "k1:9092, k2:9092,",
		"REDIS_ADDR":    "cache:6379",
		"LOG_LEVEL":     "debug",
		"HTTP_PORT":     "8081",
	}
	require.NoError(t, c.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))

	assert.Equal(t, "/var/lib/model.bin", c.Model.Path)
	assert.Equal(t, "/data/d.csv", c.Dataset.Path)
	assert.Equal(t, "kafka", c.Audit.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "cache:6379", c.Redis.Addr)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 8081, c.Server.Port)
	assert.NoError(t, c.Validate())
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]func(c *Config){
		"unknown store":         func(c *Config) { c.Model.Store = "s3" },
		"redis store no redis":  func(c *Config) { c.Model.Store = "redis" },
		"kafka audit no broker": func(c *Config) { c.Audit.Backend = "kafka" },
		"bad audit backend":     func(c *Config) { c.Audit.Backend = "stdout" },
		"test size":             func(c *Config) { c.Dataset.TestSize = 0.9 },
		"queue without redis":   func(c *Config) { c.Queue.Enabled = true },
		"zero estimators":       func(c *Config) { c.Model.Hyperparams.NEstimators = 0 },
		"bad port":              func(c *Config) { c.Server.Port = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c, err := Default()
			require.NoError(t, err)
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
