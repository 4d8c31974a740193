// Package store persists the supply collection in an embedded SQLite
// database.
//
// The whole collection is stored as a single JSON blob under a fixed key in
// a small key-value table. There is no partial persistence and no schema
// versioning of the blob: every Save rewrites it.
//
// The database runs with WAL so the dashboard and the CLI can read while the
// daemon writes.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/doctorheli/checklist/internal/supply"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ItemsKey is the key the collection blob is stored under.
const ItemsKey = "SavedSupplyItems"

// Store wraps the SQLite connection holding the collection blob.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and initializes the
// schema. The caller must call Close.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{conn: conn, path: path}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if err := s.initSchema(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// Load returns the stored collection. It returns supply.ErrNotFound when
// nothing has been saved yet, and an error wrapping supply.ErrPersistence
// when the blob cannot be read or decoded.
func (s *Store) Load(ctx context.Context) ([]supply.Item, error) {
	var blob []byte
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, ItemsKey).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, supply.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", supply.ErrPersistence, ItemsKey, err)
	}

	var items []supply.Item
	if err := json.Unmarshal(blob, &items); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", supply.ErrPersistence, ItemsKey, err)
	}
	if items == nil {
		items = []supply.Item{}
	}
	return items, nil
}

// Save serializes the full collection and replaces the stored blob.
func (s *Store) Save(ctx context.Context, items []supply.Item) error {
	if items == nil {
		items = []supply.Item{}
	}
	blob, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%w: failed to encode items: %w", supply.ErrPersistence, err)
	}

	query := `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.conn.ExecContext(ctx, query, ItemsKey, blob, now); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", supply.ErrPersistence, ItemsKey, err)
	}
	return nil
}

// UpdatedAt returns when the collection was last saved. ok is false when
// nothing has been saved.
func (s *Store) UpdatedAt(ctx context.Context) (t time.Time, ok bool, err error) {
	var raw string
	err = s.conn.QueryRowContext(ctx, `SELECT updated_at FROM kv WHERE key = ?`, ItemsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read timestamp: %w", err)
	}
	t, err = time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return t, true, nil
}

// Reset removes the stored collection so the next load starts from the seed.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, ItemsKey); err != nil {
		return fmt.Errorf("%w: failed to reset %s: %w", supply.ErrPersistence, ItemsKey, err)
	}
	return nil
}
