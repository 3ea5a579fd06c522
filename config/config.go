// Package config loads service configuration from defaults, an optional
// YAML file, and environment variables, in increasing priority.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Cache backend names.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	LinkCheck LinkCheckConfig `koanf:"linkcheck"`
	Admin     AdminConfig     `koanf:"admin"`
}

type AppConfig struct {
	Name  string `koanf:"name"`
	Env   string `koanf:"env"`
	Debug bool   `koanf:"debug"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"readtimeout"`
	WriteTimeout    time.Duration `koanf:"writetimeout"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Backend string `koanf:"backend"` // redis | memory

	Redis RedisConfig `koanf:"redis"`

	TTL      time.Duration `koanf:"ttl"`
	Coalesce bool          `koanf:"coalesce"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type LinkCheckConfig struct {
	BatchSize   int           `koanf:"batchsize"`
	Concurrency int           `koanf:"concurrency"`
	Timeout     time.Duration `koanf:"timeout"`
	BatchEvery  time.Duration `koanf:"batchevery"`
	MemoTTL     time.Duration `koanf:"memottl"`
}

type AdminConfig struct {
	// Token gates admin routes. Stands in for the district's session
	// provider; empty disables admin routes entirely.
	Token string `koanf:"token"`
}

// Load reads configuration. path names a YAML file; "" falls back to
// config.yaml, and a missing file is not an error. Environment variables use
// the SITEINDEX_ prefix with '_' as the separator
// (SITEINDEX_SERVER_PORT=8080).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(envprovider.Provider(".", envprovider.Opt{
		Prefix: "SITEINDEX_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, "SITEINDEX_")
			return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":  "siteindex",
		"app.env":   EnvDevelopment,
		"app.debug": false,

		"server.host":            "0.0.0.0",
		"server.port":            8080,
		"server.readtimeout":     "15s",
		"server.writetimeout":    "30s",
		"server.shutdowntimeout": "10s",

		"cache.enabled":  true,
		"cache.backend":  BackendMemory,
		"cache.ttl":      "1h",
		"cache.coalesce": false,

		"cache.redis.addr": "localhost:6379",
		"cache.redis.db":   0,

		"linkcheck.batchsize":   20,
		"linkcheck.concurrency": 5,
		"linkcheck.timeout":     "10s",
		"linkcheck.batchevery":  "1s",
		"linkcheck.memottl":     "15m",
	}
}

func Validate(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch cfg.Cache.Backend {
	case BackendRedis:
		if cfg.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("cache.backend %q unknown (want %s or %s)", cfg.Cache.Backend, BackendRedis, BackendMemory)
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	return nil
}
