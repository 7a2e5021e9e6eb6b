// Package config loads the service configuration from defaults, an
// optional YAML file and the environment, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"

	"dario.cat/mergo"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Pagination PaginationConfig `yaml:"pagination"`
	Logging    LoggingConfig    `yaml:"logging"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`

	ExcludedModels []string `yaml:"excluded_models"`
	AllowedHosts   []string `yaml:"allowed_hosts"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
	// Adapter is "fiber" or "httprouter".
	Adapter     string `yaml:"adapter"`
	MetricsPath string `yaml:"metrics_path"`
}

type DatabaseConfig struct {
	// DSN selects the driver: postgres:// URLs use pgdriver, anything
	// else is opened with sqlite.
	DSN   string `yaml:"dsn"`
	Debug bool   `yaml:"debug"`
}

type PaginationConfig struct {
	DefaultSize int `yaml:"default_size"`
	MaxSize     int `yaml:"max_size"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	// Backend is "zap" or "zerolog".
	Backend string `yaml:"backend"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Address:     ":8080",
			Adapter:     "fiber",
			MetricsPath: "/metrics",
		},
		Database: DatabaseConfig{
			DSN: "file:autocrud.db?cache=shared",
		},
		Pagination: PaginationConfig{
			DefaultSize: 20,
			MaxSize:     500,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Backend: "zap",
		},
		RateLimit: RateLimitConfig{
			RPS:   50,
			Burst: 100,
		},
	}
}

// Load builds the configuration. path may be empty, a missing file is
// an error.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		var file Config
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := mergo.Merge(&cfg, file, mergo.WithOverride); err != nil {
			return cfg, err
		}
	}

	if err := mergo.Merge(&cfg, FromEnv(), mergo.WithOverride, mergo.WithAppendSlice); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// FromEnv reads the settings present in the environment. Unset keys
// stay zero so they never override lower layers.
func FromEnv() Config {
	var cfg Config

	cfg.Server.Address = GetEnv("AUTOCRUD_ADDRESS", "")
	cfg.Server.Adapter = GetEnv("AUTOCRUD_ADAPTER", "")
	cfg.Server.MetricsPath = GetEnv("AUTOCRUD_METRICS_PATH", "")

	cfg.Database.DSN = GetEnv("DATABASE_URL", "")
	cfg.Database.Debug = GetBool("DATABASE_DEBUG", "false")

	cfg.Pagination.DefaultSize = getInt("PAGE_SIZE")
	cfg.Pagination.MaxSize = getInt("MAX_PAGE_SIZE")

	cfg.Logging.Level = GetEnv("LOG_LEVEL", "")
	cfg.Logging.Backend = GetEnv("LOG_BACKEND", "")

	if rps, err := strconv.ParseFloat(GetEnv("RATE_LIMIT_RPS", ""), 64); err == nil {
		cfg.RateLimit.RPS = rps
	}
	cfg.RateLimit.Burst = getInt("RATE_LIMIT_BURST")

	cfg.ExcludedModels = GetEnvList("EXCLUDED_MODELS")
	cfg.AllowedHosts = GetEnvList("ALLOWED_HOSTS")
	cfg.AllowedOrigins = GetEnvList("ALLOWED_ORIGINS")

	return cfg
}

func getInt(key string) int {
	n, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return 0
	}
	return n
}
