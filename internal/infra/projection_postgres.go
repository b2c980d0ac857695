package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Vovarama1992/storyreels/internal/models"
	"github.com/Vovarama1992/storyreels/internal/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresProjectionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresProjectionRepo(pool *pgxpool.Pool) ports.ProjectionRepository {
	return &PostgresProjectionRepo{pool: pool}
}

func (r *PostgresProjectionRepo) Apply(ctx context.Context, rec models.MediaRecord) error {
	category := rec.Category()
	url := rec.URL()
	if category == "" || url == "" {
		return nil
	}
	at := rec.RecordedAt
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin apply: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := upsertLatest(ctx, tx, category, url, at); err != nil {
		return err
	}
	if category == models.UserReel {
		if _, err := tx.Exec(ctx,
			`INSERT INTO media_reels (url, recorded_at) VALUES ($1, $2)`,
			url, at,
		); err != nil {
			return fmt.Errorf("insert reel: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func upsertLatest(ctx context.Context, tx pgx.Tx, category models.Category, url string, at time.Time) error {
	query := `
		INSERT INTO media_latest (category, url, recorded_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (category) DO UPDATE
		SET url = EXCLUDED.url, recorded_at = EXCLUDED.recorded_at
	`
	if _, err := tx.Exec(ctx, query, string(category), url, at); err != nil {
		return fmt.Errorf("upsert latest: %w", err)
	}
	return nil
}

func (r *PostgresProjectionRepo) Latest(ctx context.Context, category models.Category) (string, error) {
	var url string
	err := r.pool.QueryRow(ctx,
		`SELECT url FROM media_latest WHERE category = $1`,
		string(category),
	).Scan(&url)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("select latest: %w", err)
	}
	return url, nil
}

func (r *PostgresProjectionRepo) AllReels(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT url FROM media_reels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select reels: %w", err)
	}
	urls, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan reels: %w", err)
	}
	return urls, nil
}

func (r *PostgresProjectionRepo) Replace(ctx context.Context, snap models.Snapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE media_latest, media_reels RESTART IDENTITY`); err != nil {
		return fmt.Errorf("truncate projection: %w", err)
	}

	now := time.Now()
	for category, url := range snap.Latest {
		if err := upsertLatest(ctx, tx, category, url, now); err != nil {
			return err
		}
	}

	if len(snap.Reels) > 0 {
		rows := make([][]any, len(snap.Reels))
		for i, url := range snap.Reels {
			rows[i] = []any{url, now}
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"media_reels"},
			[]string{"url", "recorded_at"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("copy reels: %w", err)
		}
	}

	return tx.Commit(ctx)
}
