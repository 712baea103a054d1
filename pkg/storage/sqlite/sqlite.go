// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlite is a SQLite-backed implementation of storage.History.
// The driver is pure Go, so the gateway stays a single static binary.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/MerLin027/PaperSynth/pkg/storage"

	_ "modernc.org/sqlite"
)

// compile-time check
var _ storage.History = (*Store)(nil)

// Store is a SQLite-backed history log.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and ensures the schema exists.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// SQLite allows one writer at a time; serialize access through a
	// single connection instead of surfacing SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			request_id TEXT PRIMARY KEY,
			filename TEXT NOT NULL DEFAULT '',
			size_bytes INTEGER NOT NULL DEFAULT 0,
			pages INTEGER NOT NULL DEFAULT 0,
			summary_length TEXT NOT NULL DEFAULT '',
			preset TEXT NOT NULL DEFAULT '',
			warnings TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_created ON papers(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite create tables: %w", err)
		}
	}
	return nil
}

// Append inserts or replaces the entry for a request.
func (s *Store) Append(ctx context.Context, e *storage.Entry) error {
	warningsJSON, err := json.Marshal(e.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO papers (request_id, filename, size_bytes, pages, summary_length, preset, warnings, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (request_id) DO UPDATE SET
		   filename=$2, size_bytes=$3, pages=$4, summary_length=$5, preset=$6, warnings=$7, created_at=$8`,
		e.RequestID, e.Filename, e.SizeBytes, e.Pages, e.SummaryLength, e.Preset,
		string(warningsJSON), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// Get returns the entry for a request id.
func (s *Store) Get(ctx context.Context, requestID string) (*storage.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT request_id, filename, size_bytes, pages, summary_length, preset, warnings, created_at
		 FROM papers WHERE request_id = $1`, requestID)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entry %s: %w", requestID, storage.ErrEntryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get history entry: %w", err)
	}
	return e, nil
}

// List returns up to limit entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*storage.Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, filename, size_bytes, pages, summary_length, preset, warnings, created_at
		 FROM papers ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []*storage.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the entry for a request id.
func (s *Store) Delete(ctx context.Context, requestID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM papers WHERE request_id=$1`, requestID)
	if err != nil {
		return fmt.Errorf("delete history entry: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("entry %s: %w", requestID, storage.ErrEntryNotFound)
	}
	return nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scannable) (*storage.Entry, error) {
	var (
		e           storage.Entry
		warningsStr string
	)
	err := row.Scan(&e.RequestID, &e.Filename, &e.SizeBytes, &e.Pages,
		&e.SummaryLength, &e.Preset, &warningsStr, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(warningsStr), &e.Warnings); err != nil {
		return nil, fmt.Errorf("unmarshal warnings: %w", err)
	}
	return &e, nil
}
