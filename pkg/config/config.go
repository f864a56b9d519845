package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development"`
	Server      ServerConfig  `yaml:"server"`
	Log         LogConfig     `yaml:"log"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Model       ModelConfig   `yaml:"model"`
	Dataset     DatasetConfig `yaml:"dataset"`
	Audit       AuditConfig   `yaml:"audit"`
	Kafka       KafkaConfig   `yaml:"kafka"`
	ClickHouse  CHConfig      `yaml:"clickhouse"`
	Redis       RedisConfig   `yaml:"redis"`
	Queue       QueueConfig   `yaml:"queue"`
	Cache       CacheConfig   `yaml:"cache"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"5m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
	CORS            bool          `yaml:"cors" default:"true"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"json"`
	Output string `yaml:"output" default:"stdout"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

type ModelConfig struct {
	// Store selects the artifact backend: file, redis or sqlite.
	Store       string            `yaml:"store" default:"file"`
	Path        string            `yaml:"path" default:"models/demand_model.bin"`
	SQLitePath  string            `yaml:"sqlite_path" default:"models/models.db"`
	RedisKey    string            `yaml:"redis_key" default:"demandcast:model"`
	Name        string            `yaml:"name" default:"demand"`
	Hyperparams HyperparamsConfig `yaml:"hyperparams"`
}

type HyperparamsConfig struct {
	NEstimators     int     `yaml:"n_estimators" default:"100"`
	LearningRate    float64 `yaml:"learning_rate" default:"0.1"`
	MaxDepth        int     `yaml:"max_depth" default:"5"`
	MinSamplesSplit int     `yaml:"min_samples_split" default:"2"`
	MinSamplesLeaf  int     `yaml:"min_samples_leaf" default:"1"`
	Subsample       float64 `yaml:"subsample" default:"1.0"`
	Seed            int64   `yaml:"seed" default:"42"`
}

type DatasetConfig struct {
	Path     string  `yaml:"path" default:"data/training_data.csv"`
	TestSize float64 `yaml:"test_size" default:"0.2"`
}

type AuditConfig struct {
	// Backend is none, kafka or clickhouse.
	Backend       string        `yaml:"backend" default:"none"`
	BatchSize     int           `yaml:"batch_size" default:"500"`
	FlushInterval time.Duration `yaml:"flush_interval" default:"2s"`
	BufferSize    int           `yaml:"buffer_size" default:"10000"`
	// Consume runs the Kafka to ClickHouse audit sink in this process.
	Consume bool `yaml:"consume" default:"false"`
}

type KafkaConfig struct {
	Brokers      []string       `yaml:"brokers"`
	AuditTopic   string         `yaml:"audit_topic" default:"demandcast.predictions"`
	EventsTopic  string         `yaml:"events_topic" default:"demandcast.model-events"`
	RequiredAcks int            `yaml:"required_acks" default:"-1"`
	Compression  string         `yaml:"compression" default:"zstd"`
	Producer     ProducerConfig `yaml:"producer"`
	Consumer     ConsumerConfig `yaml:"consumer"`
}

type ProducerConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	Linger       time.Duration `yaml:"linger" default:"500ms"`
	BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
	BatchSize    int           `yaml:"batch_size" default:"500"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
}

type ConsumerConfig struct {
	GroupID    string        `yaml:"group_id" default:"demandcast-audit"`
	Workers    int           `yaml:"workers" default:"2"`
	RetryMax   int           `yaml:"retry_max" default:"3"`
	BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
	BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
	DLQTopic   string        `yaml:"dlq_topic" default:"demandcast.predictions.dlq"`
}

type CHConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"demandcast"`
	Table            string        `yaml:"table" default:"predictions"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert" default:"true"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size" default:"10"`
}

type QueueConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Workers    int           `yaml:"workers" default:"1"`
	RetryLimit int           `yaml:"retry_limit" default:"3"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
	KeyPrefix  string        `yaml:"key_prefix" default:"demandcast:queue"`
}

type CacheConfig struct {
	// Backend is memory or redis.
	Backend  string        `yaml:"backend" default:"memory"`
	StatsTTL time.Duration `yaml:"stats_ttl" default:"5m"`
	MaxSize  int           `yaml:"max_size" default:"128"`
}

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads a YAML file on top of the defaults. An empty path yields the
// defaults alone.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	return c, nil
}

// LoadWithEnv loads config from YAML, applies environment overrides and
// validates the result.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	if v, ok := get("MODEL_PATH"); ok {
		c.Model.Path = v
	}
	if v, ok := get("MODEL_STORE"); ok {
		c.Model.Store = v
	}
	if v, ok := get("DATASET_PATH"); ok {
		c.Dataset.Path = v
	}
	if v, ok := get("AUDIT_BACKEND"); ok {
		c.Audit.Backend = v
	}
	if v, ok := get("KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = splitList(v)
	}
	if v, ok := get("REDIS_ADDR"); ok {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := get("HTTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks cross-field constraints the defaults cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}

	switch c.Model.Store {
	case "file":
		if c.Model.Path == "" {
			errs = append(errs, fmt.Errorf("model.path is required for the file store"))
		}
	case "sqlite":
		if c.Model.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("model.sqlite_path is required for the sqlite store"))
		}
	case "redis":
		if !c.Redis.Enabled {
			errs = append(errs, fmt.Errorf("model.store 'redis' requires redis.enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("model.store must be 'file', 'redis' or 'sqlite', got '%s'", c.Model.Store))
	}

	h := c.Model.Hyperparams
	if h.NEstimators < 1 || h.MaxDepth < 1 || h.LearningRate <= 0 || h.MinSamplesSplit < 2 || h.MinSamplesLeaf < 1 {
		errs = append(errs, fmt.Errorf("model.hyperparams out of range: %+v", h))
	}
	if h.Subsample <= 0 || h.Subsample > 1 {
		errs = append(errs, fmt.Errorf("model.hyperparams.subsample must be in (0, 1], got %g", h.Subsample))
	}
	if c.Dataset.TestSize < 0.1 || c.Dataset.TestSize > 0.5 {
		errs = append(errs, fmt.Errorf("dataset.test_size must be in [0.1, 0.5], got %g", c.Dataset.TestSize))
	}

	switch c.Audit.Backend {
	case "none", "clickhouse":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, fmt.Errorf("audit.backend 'kafka' requires kafka.brokers"))
		}
	default:
		errs = append(errs, fmt.Errorf("audit.backend must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Audit.Backend))
	}
	if c.Audit.Consume && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, fmt.Errorf("audit.consume requires kafka.brokers"))
	}
	if c.Audit.BatchSize < 1 || c.Audit.BufferSize < c.Audit.BatchSize {
		errs = append(errs, fmt.Errorf("audit.buffer_size (%d) must be >= audit.batch_size (%d) >= 1", c.Audit.BufferSize, c.Audit.BatchSize))
	}

	if c.Queue.Enabled && !c.Redis.Enabled {
		errs = append(errs, fmt.Errorf("queue.enabled requires redis.enabled"))
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			errs = append(errs, fmt.Errorf("cache.backend 'redis' requires redis.enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be 'memory' or 'redis', got '%s'", c.Cache.Backend))
	}
	return errors.Join(errs...)
}

// KafkaEnabled reports whether any Kafka brokers are configured.
func (c *Config) KafkaEnabled() bool { return len(c.Kafka.Brokers) > 0 }
