package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"FinLoad/pkg/util"
)

type Config struct {
	Environment string         `yaml:"environment" default:"development" validate:"required"`
	Log         LogConfig      `yaml:"log"`
	Provider    ProviderConfig `yaml:"provider"`
	Ingest      IngestConfig   `yaml:"ingest"`
	Store       StoreConfig    `yaml:"store"`
	Kafka       KafkaConfig    `yaml:"kafka"`
	Redis       RedisConfig    `yaml:"redis"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	Server      ServerConfig   `yaml:"server"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
	// File adds a rotating JSON sink; empty disables it.
	File       string `yaml:"file"`
	MaxAgeDays int    `yaml:"max_age_days" default:"7"`
	MaxBackups int    `yaml:"max_backups" default:"7"`
}

type ProviderConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url" default:"https://api.twelvedata.com" validate:"url"`
	Timeout    time.Duration `yaml:"timeout" default:"30s"`
	OutputSize int           `yaml:"output_size" default:"5000" validate:"gte=1,lte=5000"`
	RateLimit  struct {
		PerMinute float64 `yaml:"per_minute" default:"8"`
		Burst     int     `yaml:"burst" default:"1" validate:"gte=1"`
	} `yaml:"rate_limit"`
	Retry struct {
		MaxAttempts int           `yaml:"max_attempts" default:"1" validate:"gte=1,lte=10"`
		BackoffMin  time.Duration `yaml:"backoff_min" default:"1s"`
		BackoffMax  time.Duration `yaml:"backoff_max" default:"30s"`
	} `yaml:"retry"`
}

type IngestConfig struct {
	Interval    string        `yaml:"interval" default:"1h"`
	Workers     int           `yaml:"workers" default:"1" validate:"gte=1,lte=64"`
	SkipBadRows bool          `yaml:"skip_bad_rows"`
	RunTimeout  time.Duration `yaml:"run_timeout"`
	SymbolsFile string        `yaml:"symbols_file" default:"stocks.txt"`
	LockTTL     time.Duration `yaml:"lock_ttl" default:"5m" validate:"gte=1s"`
}

type StoreConfig struct {
	Type     string `yaml:"type" default:"postgres" validate:"oneof=postgres clickhouse memory"`
	Table    string `yaml:"table" default:"stock_prices" validate:"required"`
	Postgres struct {
		Host           string        `yaml:"host" default:"localhost"`
		Port           int           `yaml:"port" default:"5432"`
		Database       string        `yaml:"database" default:"postgres"`
		User           string        `yaml:"user" default:"postgres"`
		Password       string        `yaml:"password"`
		SSLMode        string        `yaml:"ssl_mode" default:"disable"`
		MaxOpenConns   int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns   int           `yaml:"max_idle_conns" default:"2"`
		ConnectTimeout time.Duration `yaml:"connect_timeout" default:"5s"`
		Debug          bool          `yaml:"debug"`
	} `yaml:"postgres"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic" default:"finload.symbol-results"`
	RequiredAcks int           `yaml:"required_acks" default:"-1"`
	Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	// AutoCreateTopic lets the broker create Topic on first publish.
	AutoCreateTopic bool `yaml:"auto_create_topic"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"finload"`
}

type MetricsConfig struct {
	// PushURL is a Pushgateway base URL; empty disables pushing after a run.
	PushURL string `yaml:"push_url"`
	Job     string `yaml:"job" default:"finload"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file, applies defaults and validates it.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file at path is not an error; defaults and env are used instead.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if errors.Is(err, os.ErrNotExist) {
		c = &Config{}
		if err = defaults.Set(c); err != nil {
			return nil, fmt.Errorf("apply defaults: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	// API_KEY is the name older deployments' .env files use.
	if v := firstEnv("TWELVEDATA_API_KEY", "API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("STORE_TYPE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Store.Postgres.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		c.Store.Postgres.Port = util.ParseIntDefault(v, c.Store.Postgres.Port)
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Store.Postgres.Database = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Store.Postgres.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Store.Postgres.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Provider.Retry.BackoffMin > c.Provider.Retry.BackoffMax {
		return fmt.Errorf("provider.retry.backoff_min must be <= backoff_max")
	}
	return nil
}

// RequireProvider checks the settings only the ingestion run needs.
func (c *Config) RequireProvider() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider.api_key is required (or set TWELVEDATA_API_KEY or API_KEY)")
	}
	return nil
}
