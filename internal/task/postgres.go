package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const stateKey = "tasks"

// PostgresBackend keeps the mapping under a single key in arbitra_state.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend wraps an existing pool.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

// ConnectPostgres opens a pool for dsn and ensures the state table exists.
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	b := NewPostgresBackend(pool)
	if err := b.EnsureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

// EnsureTable creates the state table if it doesn't exist.
func (b *PostgresBackend) EnsureTable(ctx context.Context) error {
	_, err := b.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS arbitra_state (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("ensure arbitra_state table: %w", err)
	}
	return nil
}

// Load implements Backend.
func (b *PostgresBackend) Load(ctx context.Context) (map[string][]Task, error) {
	var raw []byte
	err := b.pool.QueryRow(ctx, `SELECT value FROM arbitra_state WHERE key = $1`, stateKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return map[string][]Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load task state: %w", err)
	}
	return decodeMapping(raw)
}

// Save implements Backend.
func (b *PostgresBackend) Save(ctx context.Context, tasks map[string][]Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	_, err = b.pool.Exec(ctx, `
		INSERT INTO arbitra_state (key, value, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		stateKey, string(data))
	if err != nil {
		return fmt.Errorf("save task state: %w", err)
	}
	return nil
}

// Close releases the pool.
func (b *PostgresBackend) Close() {
	b.pool.Close()
}
