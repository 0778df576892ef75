// Package history records extraction runs in a local SQLite database.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"vmx-go/internal/history/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Run is one extraction run's record.
type Run struct {
	ID               string
	BackupIdentifier string
	StartedAt        time.Time
	FinishedAt       *time.Time
	Extracted        int
	Matched          int
	Surplus          int
	Skipped          int
	Status           string // "running", "success", or "error"
}

// Store persists runs in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the history database at path and applies any
// pending migrations. path can be ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// RecordStart inserts a new run in "running" state.
func (s *Store) RecordStart(id, backupIdentifier string, startedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (id, backup_identifier, started_at, status) VALUES (?, ?, ?, 'running')`,
		id, backupIdentifier, startedAt)
	if err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}
	return nil
}

// Finish marks a run complete with its final counts and status.
// backupIdentifier is recorded here because the run starts before the
// selector has resolved which backup it will read.
func (s *Store) Finish(id string, finishedAt time.Time, backupIdentifier string, extracted, matched, surplus, skipped int, status string) error {
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, backup_identifier = ?, extracted = ?, matched = ?, surplus = ?, skipped = ?, status = ? WHERE id = ?`,
		finishedAt, backupIdentifier, extracted, matched, surplus, skipped, status, id)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(limit int) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, backup_identifier, started_at, finished_at, extracted, matched, surplus, skipped, status
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.BackupIdentifier, &r.StartedAt, &finished,
			&r.Extracted, &r.Matched, &r.Surplus, &r.Skipped, &r.Status); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// Path returns the database file path (or ":memory:").
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
