package dbcache

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config controls the behavior of the cached connection pool.
type Config struct {
	// ConnectionString is the application query URL.
	ConnectionString string `env:"DATABASE_URL"`

	// MaxConns defaults to 10.
	MaxConns int32 `env:"DATABASE_MAX_CONNS"`

	// MinConns defaults to 0.
	MinConns int32 `env:"DATABASE_MIN_CONNS"`

	// HealthChecksDisabled disables pgxpool's idle-connection health checks.
	HealthChecksDisabled bool `env:"DATABASE_HEALTH_CHECKS_DISABLED"`

	// HealthCheckPeriod defaults to 30s when health checks are enabled.
	HealthCheckPeriod time.Duration `env:"DATABASE_HEALTH_CHECK_PERIOD"`

	// MaxConnLifetime defaults to 30m.
	MaxConnLifetime time.Duration `env:"DATABASE_MAX_CONN_LIFETIME"`

	// MaxConnIdleTime defaults to 5m.
	MaxConnIdleTime time.Duration `env:"DATABASE_MAX_CONN_IDLE_TIME"`

	// ConnectTimeout bounds each connect attempt, dial through initial ping.
	// Defaults to 10s.
	ConnectTimeout time.Duration `env:"DATABASE_CONNECT_TIMEOUT"`

	// ProbeInterval enables liveness probing of the cached handle: on an
	// Acquire cache hit at most once per interval, the handle is pinged and
	// evicted if the ping fails. Zero disables probing; the cached handle is
	// then trusted until Invalidate or Close.
	ProbeInterval time.Duration `env:"DATABASE_PROBE_INTERVAL"`

	// Logger receives attempt and eviction events. Nil uses slog.Default().
	Logger *slog.Logger `env:"-"`
}

// ConfigFromEnv loads Config from environment variables. A missing or empty
// DATABASE_URL is a *ConfigError: the process should fail startup rather
// than defer the problem to the first Acquire.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		// SECURITY: parse errors echo variable values; name only the step.
		return Config{}, &ConfigError{msg: "dbcache: invalid database environment configuration", cause: err}
	}
	if cfg.ConnectionString == "" {
		return Config{}, &ConfigError{msg: "dbcache: DATABASE_URL is required"}
	}
	return cfg, nil
}

// logger returns the configured logger or falls back to the default.
func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// connectTimeout returns the configured connect timeout or the default.
func (c Config) connectTimeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return 10 * time.Second
}
