// Package store provides the client-side durable storage for the cart
// engine: a small SQLite-backed key-value store holding the last-known cart
// snapshot and the last-known session record. Both survive process restarts,
// which is what lets the engine serve a usable (possibly stale) cart when
// the backend is unreachable.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SlotStore is the SQLite implementation of Interface.
type SlotStore struct {
	db *sql.DB
}

// Open creates or opens the slot database at the given path. Safe to call
// multiple times against the same file.
func Open(path string) (*SlotStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows only one writer, and the engine is the only writer we
	// have. A single connection avoids SQLITE_BUSY entirely.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SlotStore{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *SlotStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores value under key, replacing any previous value.
func (s *SlotStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to put slot %s: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key; the second result reports whether
// the slot exists.
func (s *SlotStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get slot %s: %w", key, err)
	}
	return value, true, nil
}

// Delete removes the slot under key. Deleting a missing slot is not an error.
func (s *SlotStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	return nil
}
