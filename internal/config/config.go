// Package config loads service configuration.
// Priority: defaults < YAML file < environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all shiftrules configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Validation ValidationConfig `yaml:"validation"`
	LogLevel   string           `yaml:"log_level"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

// DatabaseConfig points at PostgreSQL. An empty URL keeps profiles and scope
// rules in memory.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig enables the shared profile cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	Prefix   string        `yaml:"prefix"`
}

// ValidationConfig tunes the batch validator.
type ValidationConfig struct {
	Concurrency int    `yaml:"concurrency"` // 0 = GOMAXPROCS
	RestMarker  string `yaml:"rest_marker"`
	Language    string `yaml:"language"` // en | it
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			RequestTimeout: 60 * time.Second,
			MaxBodyBytes:   32 << 20,
		},
		Redis: RedisConfig{
			TTL:    10 * time.Minute,
			Prefix: "shiftrules:profiles:",
		},
		Validation: ValidationConfig{
			RestMarker: "riposo",
			Language:   "en",
		},
		LogLevel: "INFO",
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path falls back to SHIFTRULES_CONFIG; with
// neither set only defaults and environment apply.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getenv("SHIFTRULES_CONFIG")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// Validate rejects values the services cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Validation.Concurrency < 0 {
		return fmt.Errorf("validation.concurrency must be >= 0, got %d", c.Validation.Concurrency)
	}
	switch c.Validation.Language {
	case "", "en", "it":
	default:
		return fmt.Errorf("validation.language %q is not supported (en, it)", c.Validation.Language)
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl must be >= 0")
	}
	return nil
}
