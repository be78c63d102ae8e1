// Package database manages the optional Postgres pool shared by the feature
// flag store and the PostGIS prediction backend.
package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPostGISMissing is returned by CheckPostGIS when the extension is not
// installed in the connected database.
var ErrPostGISMissing = errors.New("postgis extension not installed")

// Config holds database connection configuration.
type Config struct {
	// URL, when set, takes precedence over the discrete fields.
	URL string

	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns          int
	MinConns          int
	ConnMaxLifetime   time.Duration
	HealthCheckPeriod time.Duration

	// ConnectTimeout bounds the initial connect and ping.
	ConnectTimeout time.Duration
}

// ConfigFromEnv creates a Config from DATABASE_URL and the DB_* variables.
func ConfigFromEnv() Config {
	port, _ := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
	maxConns, _ := strconv.Atoi(getEnvOrDefault("DB_MAX_CONNS", "10"))
	minConns, _ := strconv.Atoi(getEnvOrDefault("DB_MIN_CONNS", "1"))
	lifetime, _ := time.ParseDuration(getEnvOrDefault("DB_CONN_MAX_LIFETIME", "30m"))
	connectTimeout, _ := time.ParseDuration(getEnvOrDefault("DB_CONNECT_TIMEOUT", "10s"))

	return Config{
		URL:               os.Getenv("DATABASE_URL"),
		Host:              getEnvOrDefault("DB_HOST", "localhost"),
		Port:              port,
		User:              getEnvOrDefault("DB_USER", "airlens"),
		Password:          getEnvOrDefault("DB_PASSWORD", "localdev"),
		Database:          getEnvOrDefault("DB_NAME", "airlens"),
		SSLMode:           getEnvOrDefault("DB_SSL_MODE", "disable"),
		MaxConns:          maxConns,
		MinConns:          minConns,
		ConnMaxLifetime:   lifetime,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    connectTimeout,
	}
}

// ConnectionString returns the PostgreSQL connection string.
func (c Config) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Connect creates a pool and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns) //nolint:gosec // small config value
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns) //nolint:gosec // small config value
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Execer is the subset of *pgxpool.Pool EnsureSchema uses.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// schema creates the tables this service owns. The prediction table is
// loaded by the modelling pipeline and is not managed here.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS feature_flags (
		key        TEXT PRIMARY KEY,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates missing service-owned tables.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// QueryRower is the subset of *pgxpool.Pool CheckPostGIS uses.
type QueryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CheckPostGIS verifies the postgis extension is installed. It backs the
// readiness check when predictions are served from PostGIS.
func CheckPostGIS(ctx context.Context, db QueryRower) error {
	var installed bool
	err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'postgis')`).Scan(&installed)
	if err != nil {
		return fmt.Errorf("check postgis: %w", err)
	}
	if !installed {
		return ErrPostGISMissing
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
