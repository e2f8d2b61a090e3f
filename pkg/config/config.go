package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Data struct {
		Backend         string `yaml:"backend"` // csv or clickhouse
		Dir             string `yaml:"dir"`
		ClickHouseTable string `yaml:"clickhouse_table"`
	} `yaml:"data"`
	Models struct {
		Dir string `yaml:"dir"`
	} `yaml:"models"`
	Runs struct {
		DBPath             string `yaml:"db_path"`
		DefaultFlow        string `yaml:"default_flow"`
		DefaultHorizonDays int    `yaml:"default_horizon_days"`
		DefaultHistoryDays int    `yaml:"default_history_days"`
	} `yaml:"runs"`
	Cache struct {
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			BatchTimeout time.Duration `yaml:"batch_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CARGOCAST_DATA_BACKEND"); v != "" {
		c.Data.Backend = v
	}
	if v := os.Getenv("CARGOCAST_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("CARGOCAST_MODELS_DIR"); v != "" {
		c.Models.Dir = v
	}
	if v := os.Getenv("CARGOCAST_RUNS_DB"); v != "" {
		c.Runs.DBPath = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Data.Backend == "" {
		return fmt.Errorf("data.backend is required")
	}
	if c.Data.Backend != "csv" && c.Data.Backend != "clickhouse" {
		return fmt.Errorf("data.backend must be 'csv' or 'clickhouse', got '%s'", c.Data.Backend)
	}
	if c.Data.Backend == "csv" && c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required for the csv backend")
	}
	if c.Data.Backend == "clickhouse" && c.Data.ClickHouseTable == "" {
		return fmt.Errorf("data.clickhouse_table is required for the clickhouse backend")
	}
	if c.Models.Dir == "" {
		return fmt.Errorf("models.dir is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
