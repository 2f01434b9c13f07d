// Package history keeps a log of served recommendation requests in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one served request.
type Entry struct {
	ID       string
	Query    string
	Source   string
	TopK     int
	Results  []string
	TopScore float64
	Created  time.Time
}

// Store provides SQLite-backed persistence for request history.
type Store struct {
	db *sql.DB
}

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS requests (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	source TEXT,
	top_k INTEGER,
	results TEXT,
	top_score REAL,
	created_at INTEGER
);

CREATE INDEX IF NOT EXISTS requests_created_at ON requests (created_at);
`

// Open opens the database at path, creating the schema if needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	// A single connection keeps in-memory databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: set WAL mode: %w", err)
	}

	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create tables: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores an entry. Created defaults to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.Created.IsZero() {
		e.Created = time.Now()
	}

	results, err := json.Marshal(e.Results)
	if err != nil {
		return fmt.Errorf("history: encode results: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO requests (id, query, source, top_k, results, top_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Query, e.Source, e.TopK, string(results), e.TopScore, e.Created.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("history: record %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, source, top_k, results, top_score, created_at
		 FROM requests ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			source  sql.NullString
			results sql.NullString
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Query, &source, &e.TopK, &results, &e.TopScore, &created); err != nil {
			return nil, fmt.Errorf("history: scan entry: %w", err)
		}
		e.Source = source.String
		e.Created = time.UnixMilli(created)
		if results.Valid && results.String != "" {
			if err := json.Unmarshal([]byte(results.String), &e.Results); err != nil {
				return nil, fmt.Errorf("history: decode results of %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM requests`).Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}
