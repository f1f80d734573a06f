package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig   `mapstructure:"server"`
	Database  DatabaseConfig `mapstructure:"database"`
	Delivery  DeliveryConfig `mapstructure:"delivery"`
	Queue     QueueConfig    `mapstructure:"queue"`
	Dispatch  DispatchConfig `mapstructure:"dispatch"`
	Seed      SeedConfig     `mapstructure:"seed"`
	Events    EventsConfig   `mapstructure:"events"`
	JWTSecret string         `mapstructure:"jwt_secret"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Path     string `mapstructure:"path"` // directory for the SQLite database file
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.IsSQLite() {
		return filepath.Join(d.Path, d.Name+".db")
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsSQLite returns true if the driver is sqlite.
func (d DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

// Delivery modes.
const (
	DeliveryInline = "inline"
	DeliveryQueue  = "queue"
)

type DeliveryConfig struct {
	Mode           string `mapstructure:"mode"`
	TimeoutMs      int    `mapstructure:"timeout_ms"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	RetryIntervalS int    `mapstructure:"retry_interval_s"`
}

func (d DeliveryConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMs) * time.Millisecond
}

func (d DeliveryConfig) RetryInterval() time.Duration {
	return time.Duration(d.RetryIntervalS) * time.Second
}

type QueueConfig struct {
	RedisAddr   string `mapstructure:"redis_addr"`
	Concurrency int    `mapstructure:"concurrency"`
	Name        string `mapstructure:"name"`
}

type DispatchConfig struct {
	TimeoutMs int `mapstructure:"timeout_ms"`
}

func (d DispatchConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMs) * time.Millisecond
}

// EventsConfig controls the buffered trigger event log.
type EventsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	BufferSize      int  `mapstructure:"buffer_size"`
	FlushIntervalMs int  `mapstructure:"flush_interval_ms"`
	RetentionDays   int  `mapstructure:"retention_days"`
}

func (e EventsConfig) FlushInterval() time.Duration {
	return time.Duration(e.FlushIntervalMs) * time.Millisecond
}

type SeedConfig struct {
	TemplatesFile string `mapstructure:"templates_file"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../..")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "webhook_bot")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.path", "./data")
	v.SetDefault("jwt_secret", "changeme-secret")
	v.SetDefault("delivery.mode", DeliveryInline)
	v.SetDefault("delivery.timeout_ms", 10000)
	v.SetDefault("delivery.max_attempts", 3)
	v.SetDefault("delivery.retry_interval_s", 30)
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.name", "deliveries")
	v.SetDefault("dispatch.timeout_ms", 2000)
	v.SetDefault("seed.templates_file", "")
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.buffer_size", 100)
	v.SetDefault("events.flush_interval_ms", 1000)
	v.SetDefault("events.retention_days", 30)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database.driver %q", c.Database.Driver)
	}
	switch c.Delivery.Mode {
	case DeliveryInline, DeliveryQueue:
	default:
		return fmt.Errorf("config: unsupported delivery.mode %q", c.Delivery.Mode)
	}
	if c.Delivery.MaxAttempts < 1 {
		return fmt.Errorf("config: delivery.max_attempts must be at least 1")
	}
	return nil
}
