package kvstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend stores values in a two-column PostgreSQL table.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend creates a backend on top of an existing pool.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

// EnsureTable creates the key-value table if it does not exist yet.
func (b *PostgresBackend) EnsureTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS acquisition_kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`
	if _, err := b.pool.Exec(ctx, query); err != nil {
		return unavailable("create table", err)
	}
	return nil
}

// Set upserts value under key.
func (b *PostgresBackend) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO acquisition_kv (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`
	if _, err := b.pool.Exec(ctx, query, key, value); err != nil {
		return unavailable("set", err)
	}
	return nil
}

// Get returns the value stored under key.
func (b *PostgresBackend) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := b.pool.QueryRow(ctx, `SELECT value FROM acquisition_kv WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNil
		}
		return "", unavailable("get", err)
	}
	return value, nil
}

// Keys returns the keys matching pattern, ordered by key.
func (b *PostgresBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT key FROM acquisition_kv WHERE key LIKE $1 ESCAPE '\' ORDER BY key`,
		likePattern(pattern),
	)
	if err != nil {
		return nil, unavailable("keys", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, unavailable("keys", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("keys", err)
	}

	return filterKeys(keys, pattern), nil
}

// Ping checks the pool.
func (b *PostgresBackend) Ping(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Ensure PostgresBackend implements Backend interface.
var _ Backend = (*PostgresBackend)(nil)
