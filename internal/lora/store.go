package lora

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, WAL-friendly
)

// SQLiteStore persists LoRA metadata in a SQLite database. Connections are
// opened per operation; the database carries a single table keyed by file ID.
type SQLiteStore struct {
	dbPath string
	dsn    string
}

// NewSQLiteStore constructs a store backed by the database at dbPath.
// The file and schema are created on first use.
func NewSQLiteStore(dbPath string) *SQLiteStore {
	trimmed := strings.TrimSpace(dbPath)
	if trimmed == "" {
		panic("NewSQLiteStore requires a non-empty dbPath")
	}
	return &SQLiteStore{
		dbPath: trimmed,
		dsn:    buildSQLiteDSN(trimmed),
	}
}

// buildSQLiteDSN creates a read-write WAL DSN for the given path.
func buildSQLiteDSN(dbPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(dbPath),
	}
	q := url.Values{}
	q.Set("mode", "rwc")
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "3000")
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *SQLiteStore) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS lora_meta (
			id       TEXT PRIMARY KEY,
			triggers TEXT NOT NULL DEFAULT '',
			strength REAL NOT NULL DEFAULT 1.0
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

// Load returns all stored metadata keyed by file ID.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]Meta, error) {
	db, err := s.openDB(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, `SELECT id, triggers, strength FROM lora_meta`)
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	meta := map[string]Meta{}
	for rows.Next() {
		var id string
		var m Meta
		if err := rows.Scan(&id, &m.Triggers, &m.Strength); err != nil {
			return nil, fmt.Errorf("scan metadata row: %w", err)
		}
		meta[id] = m
	}
	return meta, rows.Err()
}

// Save upserts the metadata for one file ID.
func (s *SQLiteStore) Save(ctx context.Context, id string, meta Meta) error {
	db, err := s.openDB(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(ctx, `
		INSERT INTO lora_meta (id, triggers, strength) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET triggers = excluded.triggers, strength = excluded.strength
	`, id, meta.Triggers, meta.Strength)
	if err != nil {
		return fmt.Errorf("upsert metadata for %s: %w", id, err)
	}
	return nil
}
