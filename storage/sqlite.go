package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	key        TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);`

// SQLite is an Adapter backed by a SQLite database, for snapshots that must
// survive process restarts.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a SQLite-backed adapter at the given
// path. Parent directories are created; WAL mode and a busy timeout are
// enabled so a queue and an inspector can share the file.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create parent directories: %w", err)
		}
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Save stores data under key, replacing any previous value.
func (s *SQLite) Save(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (key, data) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		key, data)
	if err != nil {
		return fmt.Errorf("storage: save %q: %w", key, err)
	}
	return nil
}

// Load retrieves the data stored under key.
func (s *SQLite) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: load %q: %w", key, err)
	}
	return data, true, nil
}

// Remove deletes the data stored under key. Idempotent - no error on miss.
func (s *SQLite) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("storage: remove %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ensure SQLite implements Adapter
var _ Adapter = (*SQLite)(nil)
