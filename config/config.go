// Package config loads and validates the regsearch service configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full regsearch configuration.
type Config struct {
	DBPath    string         `yaml:"db_path"`
	Pool      PoolConfig     `yaml:"pool"`
	Cache     CacheConfig    `yaml:"cache"`
	RateLimit LimitConfig    `yaml:"rate_limit"`
	Query     QueryConfig    `yaml:"query"`
	Sources   []SourceConfig `yaml:"sources"`
	HTTP      HTTPConfig     `yaml:"http"`
}

// PoolConfig configures the cache backend connection pool.
type PoolConfig struct {
	MinConns       int           `yaml:"min_conns"`
	MaxConns       int           `yaml:"max_conns"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	MaxConnAge     time.Duration `yaml:"max_conn_age"`
	HealthInterval time.Duration `yaml:"health_interval"`
}

// CacheConfig configures the search result cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// LimitConfig configures the rate limiter and circuit breaker.
type LimitConfig struct {
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerTimeout   time.Duration `yaml:"breaker_timeout"`
}

// QueryConfig configures the parallel query orchestrator.
type QueryConfig struct {
	Workers       int           `yaml:"workers"`
	SourceTimeout time.Duration `yaml:"source_timeout"`
}

// SourceConfig declares an upstream registry source.
type SourceConfig struct {
	Name      string        `yaml:"name"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	BaseScore float32       `yaml:"base_score"`
}

// HTTPConfig configures the HTTP API server.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns sane defaults: a local store only, no upstream sources.
func Default() *Config {
	return &Config{
		DBPath: "regsearch.db",
		Pool: PoolConfig{
			MinConns:       2,
			MaxConns:       10,
			AcquireTimeout: 5 * time.Second,
			MaxConnAge:     30 * time.Minute,
			HealthInterval: 30 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		RateLimit: LimitConfig{
			BreakerThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
		Query: QueryConfig{
			Workers:       8,
			SourceTimeout: 5 * time.Second,
		},
		HTTP: HTTPConfig{
			Listen: ":8080",
		},
	}
}

// Load reads and parses a YAML config file, merged over Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.Pool.MinConns < 0 || c.Pool.MaxConns < 1 {
		return fmt.Errorf("pool bounds must be positive")
	}
	if c.Pool.MinConns > c.Pool.MaxConns {
		return fmt.Errorf("pool min_conns %d exceeds max_conns %d", c.Pool.MinConns, c.Pool.MaxConns)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Query.Workers < 1 {
		return fmt.Errorf("query workers must be at least 1")
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("source name is required")
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source %q", src.Name)
		}
		seen[src.Name] = true
		if src.BaseURL == "" {
			return fmt.Errorf("source %s: base_url is required", src.Name)
		}
	}
	return nil
}
