package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

const postgresSchema = `CREATE TABLE IF NOT EXISTS progress_records (
	profile_id TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	total_xp   INTEGER NOT NULL DEFAULT 0,
	level      INTEGER NOT NULL DEFAULT 1,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore is a PostgreSQL-backed Store. The record is kept as JSONB;
// total_xp and level are denormalised for querying.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the table if needed.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create progress table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Load(ctx context.Context, profileID string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM progress_records WHERE profile_id = $1`, profileID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select progress: %w", err)
	}
	return decodeRecord(data)
}

func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.ProfileID == "" {
		return fmt.Errorf("profile_id is required")
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO progress_records (profile_id, data, total_xp, level, updated_at)
		 VALUES ($1, $2::jsonb, $3, $4, now())
		 ON CONFLICT (profile_id) DO UPDATE
		 SET data = EXCLUDED.data,
		     total_xp = EXCLUDED.total_xp,
		     level = EXCLUDED.level,
		     updated_at = now()`,
		rec.ProfileID, string(data), rec.TotalXP, rec.CurrentLevel,
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close is a no-op; the pool belongs to the caller.
func (s *PostgresStore) Close() error {
	return nil
}
