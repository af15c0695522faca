// Package config loads server settings from GOLF_* environment variables
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backend names accepted by GOLF_EVENT_LOG and GOLF_CACHE
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds every setting the server reads at startup
type Config struct {
	HTTPPort int    `env:"GOLF_HTTP_PORT" envDefault:"8080"`
	NodeID   string `env:"GOLF_NODE_ID"` // Defaults to the hostname

	EventLog   string `env:"GOLF_EVENT_LOG" envDefault:"memory"`
	SQLitePath string `env:"GOLF_SQLITE_PATH" envDefault:"data/golf.db"`

	Cache         string        `env:"GOLF_CACHE" envDefault:"memory"`
	RedisURL      string        `env:"GOLF_REDIS_URL" envDefault:"redis://localhost:6379"`
	RedisPoolSize int           `env:"GOLF_REDIS_POOL_SIZE" envDefault:"10"`
	StateTTL      time.Duration `env:"GOLF_STATE_TTL" envDefault:"4h"`
	RoomTTL       time.Duration `env:"GOLF_ROOM_TTL" envDefault:"4h"`

	RecoveryConcurrency int   `env:"GOLF_RECOVERY_CONCURRENCY" envDefault:"8"`
	AppendRetries       int   `env:"GOLF_APPEND_RETRIES" envDefault:"3"`
	StaleTolerance      int64 `env:"GOLF_STALE_TOLERANCE" envDefault:"0"`

	AnalyticsQueueSize int `env:"GOLF_ANALYTICS_QUEUE_SIZE" envDefault:"256"`
	AnalyticsWorkers   int `env:"GOLF_ANALYTICS_WORKERS" envDefault:"1"`

	// Zero disables pruning of idle SSE hubs
	SSESweepInterval time.Duration `env:"GOLF_SSE_SWEEP_INTERVAL" envDefault:"1m"`

	LogLevel string `env:"GOLF_LOG_LEVEL" envDefault:"info"`
}

// Load reads the environment and validates the result
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.NodeID == "" {
		host, err := os.Hostname()
		if err != nil {
			return Config{}, fmt.Errorf("resolve node id: %w", err)
		}
		cfg.NodeID = host
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown backends and out-of-range tunables
func (c Config) Validate() error {
	switch c.EventLog {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("GOLF_EVENT_LOG must be %q or %q, got %q", BackendMemory, BackendSQLite, c.EventLog)
	}
	switch c.Cache {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("GOLF_CACHE must be %q or %q, got %q", BackendMemory, BackendRedis, c.Cache)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("GOLF_HTTP_PORT out of range: %d", c.HTTPPort)
	}
	if c.StaleTolerance < 0 {
		return fmt.Errorf("GOLF_STALE_TOLERANCE must not be negative")
	}
	if c.SSESweepInterval < 0 {
		return fmt.Errorf("GOLF_SSE_SWEEP_INTERVAL must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("GOLF_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// Addr is the HTTP listen address
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
