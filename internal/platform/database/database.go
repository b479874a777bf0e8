// Package database opens the PostgreSQL pool used when ACADEMY_STORE_DRIVER
// is "postgres". The same pool backs two things: the progress store, which
// keeps one row per profile in progress_records, and the analytics
// event log in academy_events. Both create their tables on startup, so the
// pool only needs a reachable database and a role allowed to create tables.
//
// Each commit writes one small row; the default pool is a handful of
// connections recycled every half hour.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplicationName is reported as application_name for every connection so
// academy sessions are easy to pick out in pg_stat_activity. A name set in
// the URL wins.
const ApplicationName = "pai-academy"

const (
	// DefaultMaxConns is used when ACADEMY_DATABASE_MAX_CONNS is not positive.
	DefaultMaxConns = 4

	connMaxLifetime = 30 * time.Minute
	connMaxIdleTime = 5 * time.Minute
)

// DB owns the pgx pool shared by the postgres progress store and the
// postgres event logger. Close it once both are done.
type DB struct {
	Pool *pgxpool.Pool
}

// ParseURL validates ACADEMY_DATABASE_URL. Both URL and keyword/value DSN
// forms are accepted.
func ParseURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

// PoolConfig builds the pool settings from the URL and the configured
// connection limits. maxConns falls back to DefaultMaxConns and minConns is
// clamped to [0, maxConns].
func PoolConfig(url string, maxConns, minConns int) (*pgxpool.Config, error) {
	cfg, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	minConns = max(0, min(minConns, maxConns))

	cfg.MaxConns = int32(maxConns)
	cfg.MinConns = int32(minConns)
	cfg.MaxConnLifetime = connMaxLifetime
	cfg.MaxConnIdleTime = connMaxIdleTime
	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}
	return cfg, nil
}

// New opens the pool and pings the server, so a bad URL or an unreachable
// database fails startup instead of the first lesson commit.
func New(ctx context.Context, url string, maxConns, minConns int) (*DB, error) {
	cfg, err := PoolConfig(url, maxConns, minConns)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases every pooled connection. Stores built on the pool must not
// be used afterwards.
func (db *DB) Close() {
	db.Pool.Close()
}

// HealthCheck pings the server. The postgres progress store reports its own
// health through the same pool, so /healthz does not call this directly.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
