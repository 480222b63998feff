// Package config loads the settings of the slice command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the file.
const (
	EnvLogLevel      = "SLICE_LOG_LEVEL"
	EnvListen        = "SLICE_LISTEN"
	EnvTreeBackend   = "SLICE_TREE_BACKEND"
	EnvRedisAddr     = "SLICE_REDIS_ADDR"
	EnvRedisPassword = "SLICE_REDIS_PASSWORD"
)

// Backends a content tree can be read from.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config represents the structure of slice.yaml.
type Config struct {
	LogLevel string      `yaml:"log_level" json:"log_level"`
	Listen   string      `yaml:"listen" json:"listen"`
	Tree     TreeConfig  `yaml:"tree" json:"tree"`
	Redis    RedisConfig `yaml:"redis" json:"redis"`
	Stats    StatsConfig `yaml:"stats" json:"stats"`
}

// TreeConfig selects the content tree.
type TreeConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	File    string `yaml:"file" json:"file"`
}

// RedisConfig locates the redis backed tree.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

// StatsConfig controls the model usage rollover.
type StatsConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// Default returns the settings used for everything the file leaves out.
func Default() Config {
	return Config{
		LogLevel: "info",
		Listen:   ":8080",
		Tree: TreeConfig{
			Backend: BackendMemory,
			File:    "content.yaml",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "slice:tree:",
		},
		Stats: StatsConfig{
			Interval: time.Minute,
		},
	}
}

// Load reads the configuration file (YAML or JSON) at path on top of the
// defaults, then applies the environment overrides. A missing file yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnv()
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	// JSON is a subset of YAML; one decoder reads both.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// LoadEnv reads .env files into the process environment. Missing files are
// skipped and variables that are already set keep their value.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides c with the SLICE_* environment variables that are set.
func (c *Config) ApplyEnv() {
	overrides := []struct {
		name string
		dst  *string
	}{
		{EnvLogLevel, &c.LogLevel},
		{EnvListen, &c.Listen},
		{EnvTreeBackend, &c.Tree.Backend},
		{EnvRedisAddr, &c.Redis.Addr},
		{EnvRedisPassword, &c.Redis.Password},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			*o.dst = v
		}
	}
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	switch c.Tree.Backend {
	case BackendMemory:
		if c.Tree.File == "" {
			return fmt.Errorf("tree.file is required for the %s backend", BackendMemory)
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the %s backend", BackendRedis)
		}
	default:
		return fmt.Errorf("unknown tree backend %q", c.Tree.Backend)
	}
	if c.Stats.Interval < 0 {
		return fmt.Errorf("stats.interval must not be negative, got %s", c.Stats.Interval)
	}
	return nil
}
