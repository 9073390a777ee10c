package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the search service
type Config struct {
	Index   IndexConfig   `yaml:"index"`
	Server  ServerConfig  `yaml:"server"`
	Search  SearchConfig  `yaml:"search"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// IndexConfig holds index build and persistence settings
type IndexConfig struct {
	DefaultPath string `yaml:"defaultPath"`
	Workers     int    `yaml:"workers"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxQueryBytes   int64         `yaml:"maxQueryBytes"`
}

// SearchConfig holds query settings. A CacheSize of zero disables caching.
type SearchConfig struct {
	CacheSize int `yaml:"cacheSize"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			DefaultPath: "index.json",
			Workers:     4,
		},
		Server: ServerConfig{
			Address:         "127.0.0.1:8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxQueryBytes:   64 << 10,
		},
		Search: SearchConfig{
			CacheSize: 256,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "127.0.0.1:9100",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (if path is not empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Index.DefaultPath = GetStringEnv("INDEX_DEFAULT_PATH", cfg.Index.DefaultPath)
	cfg.Index.Workers = GetIntEnv("INDEX_WORKERS", cfg.Index.Workers)

	cfg.Server.Address = GetStringEnv("SERVER_ADDRESS", cfg.Server.Address)
	cfg.Server.ReadTimeout = GetDurationEnv("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = GetDurationEnv("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = GetDurationEnv("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.MaxQueryBytes = int64(GetIntEnv("SERVER_MAX_QUERY_BYTES", int(cfg.Server.MaxQueryBytes)))

	cfg.Search.CacheSize = GetIntEnv("SEARCH_CACHE_SIZE", cfg.Search.CacheSize)

	cfg.Metrics.Enabled = GetBoolEnv("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Address = GetStringEnv("METRICS_ADDRESS", cfg.Metrics.Address)

	cfg.Log.Level = GetStringEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = GetStringEnv("LOG_FORMAT", cfg.Log.Format)
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
