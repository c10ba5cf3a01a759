// Package sqlite persists dashboard state (the watchlist and the action log)
// in a small key-value table on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Storage keys. Values are JSON documents.
const (
	KeyWatchlist = "vegwatch.watchlist"
	KeyActions   = "vegwatch.actions"
)

// Store is a key-value store backed by modernc.org/sqlite.
type Store struct {
	db *sql.DB
}

// Open opens a SQLite database at the given path and configures WAL mode.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection keeps per-connection pragmas in force and serializes
	// the read-modify-write in Append.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw value stored under key. ok is false when the key is unset.
func (s *Store) Get(ctx context.Context, key string) (value []byte, ok bool, err error) {
	var v string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: get %s", key)
	}
	return []byte(v), true, nil
}

// Set replaces the value stored under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, upsert, key, string(value), time.Now().UTC())
	return eris.Wrapf(err, "sqlite: set %s", key)
}

// Append adds item to the JSON array stored under key, creating the array if
// the key is unset. The read and the write share one transaction.
func (s *Store) Append(ctx context.Context, key string, item any) error {
	encoded, err := json.Marshal(item)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal item for %s", key)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	var items []json.RawMessage
	var current string
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return eris.Wrapf(err, "sqlite: read %s", key)
	default:
		if err := json.Unmarshal([]byte(current), &items); err != nil {
			return eris.Wrapf(err, "sqlite: decode %s", key)
		}
	}

	items = append(items, encoded)
	next, err := json.Marshal(items)
	if err != nil {
		return eris.Wrapf(err, "sqlite: encode %s", key)
	}
	if _, err := tx.ExecContext(ctx, upsert, key, string(next), time.Now().UTC()); err != nil {
		return eris.Wrapf(err, "sqlite: write %s", key)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

const upsert = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
