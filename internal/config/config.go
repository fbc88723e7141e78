package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"persona-card-service/internal/engine"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		// Backend is one of memory, redis, postgres or sqlite. Empty picks
		// postgres when a URL is set, then redis, then memory.
		Backend string `yaml:"backend"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Bank struct {
		ID  string `yaml:"id"`
		Dir string `yaml:"dir"`
		TTL string `yaml:"ttl"`
	} `yaml:"bank"`
	Scoring struct {
		engine.Tuning `yaml:",inline"`
		StrictRanges  bool `yaml:"strict_ranges"`
	} `yaml:"scoring"`
	Quadrant engine.QuadrantLabels `yaml:"quadrant"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Backend resolves the storage backend to use.
func (c Config) Backend() (string, error) {
	switch c.Storage.Backend {
	case StorageMemory, StorageRedis, StoragePostgres, StorageSQLite:
		return c.Storage.Backend, nil
	case "":
	default:
		return "", fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch {
	case c.Postgres.URL != "":
		return StoragePostgres, nil
	case c.Redis.Addr != "":
		return StorageRedis, nil
	}
	return StorageMemory, nil
}

// EngineOptions maps the scoring and quadrant sections onto engine options.
// Unset values keep the engine defaults.
func (c Config) EngineOptions() engine.Options {
	return engine.Options{
		Tuning:       c.Scoring.Tuning,
		Labels:       c.Quadrant,
		StrictRanges: c.Scoring.StrictRanges,
	}
}

// BankID returns the configured bank id or "default".
func (c Config) BankID() string {
	if c.Bank.ID == "" {
		return "default"
	}
	return c.Bank.ID
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
