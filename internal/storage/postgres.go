package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"voicenotes/internal/db"
)

// Postgres stores each key as one row of the kv table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates the kv table when it does not exist.
func NewPostgres(ctx context.Context, sqlDB *sql.DB) (*Postgres, error) {
	_, err := sqlDB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &Postgres{db: sqlDB}, nil
}

func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	sqlDB, err := db.OpenPostgres(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	p, err := NewPostgres(ctx, sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
