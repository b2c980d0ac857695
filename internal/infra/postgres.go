package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPgxPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect pgxpool: %w", err)
	}

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

const projectionSchema = `
	CREATE TABLE IF NOT EXISTS media_latest (
		category    TEXT PRIMARY KEY,
		url         TEXT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS media_reels (
		id          BIGSERIAL PRIMARY KEY,
		url         TEXT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

func MigrateProjection(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, projectionSchema); err != nil {
		return fmt.Errorf("migrate projection: %w", err)
	}
	return nil
}
