package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
)

// PostgresBackend keeps slots in the storage_slots table.
type PostgresBackend struct{ db *sql.DB }

func NewPostgresBackend(db *sql.DB) *PostgresBackend { return &PostgresBackend{db: db} }

// EnsureSchema creates the storage_slots table when it does not exist yet.
func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS storage_slots (
		  key        TEXT PRIMARY KEY,
		  value      JSONB NOT NULL,
		  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create storage_slots: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT value FROM storage_slots WHERE key=$1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put upserts all entries inside a single transaction.
func (b *PostgresBackend) Put(ctx context.Context, entries map[string][]byte) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Fixed key order keeps concurrent writers from deadlocking on row locks.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO storage_slots (key, value, updated_at)
			VALUES ($1, $2::jsonb, NOW())
			ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`,
			k, string(entries[k]))
		if err != nil {
			return fmt.Errorf("upsert slot %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Close is a no-op: the *sql.DB belongs to the caller.
func (b *PostgresBackend) Close() error { return nil }
