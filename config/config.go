// Package config provides configuration management for the application.
// Values come from three layers, lowest priority first: built-in defaults,
// an optional YAML file, and environment variables. A local .env file is
// loaded into the environment before the override pass.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Render  RenderConfig  `yaml:"render"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string `yaml:"port"`
	AdminKey        string `yaml:"admin_key"`
	MetricsEnabled  bool   `yaml:"metrics_enabled"`
	MetricsEndpoint string `yaml:"metrics_endpoint"`
}

// StorageConfig selects the SQL engine the query layer talks to.
type StorageConfig struct {
	// Type is "sqlite" or "postgresql".
	Type string `yaml:"type"`

	// Path is the SQLite database file; ":memory:" for a throwaway one.
	Path string `yaml:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn"`
}

// Duration decodes YAML values like "90s" or "1h" via time.ParseDuration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// CacheConfig holds template-cache configuration.
type CacheConfig struct {
	// Backend is "local" or "redis".
	Backend string   `yaml:"backend"`
	TTL     Duration `yaml:"ttl"`

	// RedisURL is the connection URL for the redis backend, e.g.
	// "redis://localhost:6379/0".
	RedisURL string `yaml:"redis_url"`
}

// RenderConfig holds template rendering configuration.
type RenderConfig struct {
	// TemplateDirs are searched in order for template names.
	TemplateDirs []string `yaml:"template_dirs"`

	// AltTemplateDirs back the alternate-directory render routes.
	AltTemplateDirs []string `yaml:"alt_template_dirs"`

	// StaticURL is the asset prefix the static context processor exposes.
	StaticURL string `yaml:"static_url"`
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `yaml:"level"`

	// Format is "pretty" or "json".
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			MetricsEnabled:  true,
			MetricsEndpoint: "/metrics",
		},
		Storage: StorageConfig{
			Type: "sqlite",
			Path: "data/shelfql.db",
		},
		Cache: CacheConfig{
			Backend: "local",
		},
		Render: RenderConfig{
			TemplateDirs:    []string{"templates"},
			AltTemplateDirs: []string{"templates/alt"},
			StaticURL:       "/static/",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "pretty",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (when
// non-empty or when the default config.yaml exists), then environment
// variables. A .env file in the working directory is honored.
func Load(path string) (*Config, error) {
	// Missing .env files are fine.
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides configuration from environment variables.
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SHELFQL_PORT", "PORT")
	setString(&cfg.Server.AdminKey, "SHELFQL_ADMIN_KEY")
	setBool(&cfg.Server.MetricsEnabled, "SHELFQL_METRICS_ENABLED")
	setString(&cfg.Server.MetricsEndpoint, "SHELFQL_METRICS_ENDPOINT")

	setString(&cfg.Storage.Type, "SHELFQL_STORAGE_TYPE")
	setString(&cfg.Storage.Path, "SHELFQL_SQLITE_PATH")
	setString(&cfg.Storage.DSN, "SHELFQL_POSTGRES_DSN", "DATABASE_URL")

	setString(&cfg.Cache.Backend, "SHELFQL_CACHE_BACKEND")
	setString(&cfg.Cache.RedisURL, "SHELFQL_REDIS_URL", "REDIS_URL")

	setString(&cfg.Render.StaticURL, "SHELFQL_STATIC_URL")

	setString(&cfg.Logging.Level, "SHELFQL_LOG_LEVEL")
	setString(&cfg.Logging.Format, "SHELFQL_LOG_FORMAT")
}

// setString assigns the first non-empty environment variable to dst.
func setString(dst *string, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			*dst = v
			return
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}
