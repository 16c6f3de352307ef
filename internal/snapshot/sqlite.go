package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// currentKey is the single well-known key for the in-progress
// session. A new session's first save overwrites whatever was here.
const currentKey = "current"

// SQLite is a Store backed by a local SQLite file, so snapshots
// survive process restarts without needing the Postgres history
// database to be reachable.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the snapshot database at
// dir/session.db.
func OpenSQLite(dir string) (*SQLite, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "session.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS session_snapshots (
		key      TEXT PRIMARY KEY,
		blob     BLOB NOT NULL,
		saved_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot table: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Save replaces the current snapshot.
func (s *SQLite) Save(ctx context.Context, blob []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO session_snapshots (key, blob, saved_at) VALUES (?, ?, ?)`,
		currentKey, blob, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Load returns the current snapshot, or (nil, nil) when absent.
func (s *SQLite) Load(ctx context.Context) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM session_snapshots WHERE key = ?`, currentKey,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return blob, nil
}

// Clear removes the current snapshot.
func (s *SQLite) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_snapshots WHERE key = ?`, currentKey,
	)
	if err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	return nil
}

// Close closes the snapshot database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
