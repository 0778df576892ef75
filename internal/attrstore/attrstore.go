// Package attrstore reads voicemail attribute records out of an
// extracted attribute database.
package attrstore

import (
	"database/sql"
	"fmt"
	"time"

	"vmx-go/internal/vmx"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store implements vmx.AttributeStore over an extracted voicemail.db.
type Store struct {
	db   *sql.DB
	path string
}

// Opener implements vmx.AttributeOpener for on-disk attribute databases.
type Opener struct{}

// NewOpener creates the production attribute database opener.
func NewOpener() *Opener { return &Opener{} }

// IsWellFormed probes path for the expected table. A corrupted or
// truncated extraction fails here instead of surfacing as scan errors
// halfway through a read.
func (Opener) IsWellFormed(path string) bool {
	db, err := openReadOnly(path)
	if err != nil {
		return false
	}
	defer db.Close()

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'voicemail'").Scan(&name)
	return err == nil
}

// Open opens the attribute database at path read-only.
func (Opener) Open(path string) (vmx.AttributeStore, error) {
	db, err := openReadOnly(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func openReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open attribute database: %w", err)
	}
	return db, nil
}

// ReadAll returns every voicemail record, ordered by received time
// descending so the most recent voicemails reconcile first. Rows whose
// trashed timestamp is set are filtered out unless includeDeleted is set.
func (s *Store) ReadAll(includeDeleted bool) ([]*vmx.AttributeRecord, error) {
	query := `SELECT ROWID, remote_uid, date, sender, callback_num, duration, expiration, trashed_date, flags
		FROM voicemail`
	if !includeDeleted {
		query += " WHERE trashed_date IS NULL OR trashed_date = 0"
	}
	query += " ORDER BY date DESC"

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying voicemail records: %w", err)
	}
	defer rows.Close()

	var records []*vmx.AttributeRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// scanRecord decodes one row. Producer versions disagree on column
// nullability, so every column scans through a Null type.
func scanRecord(rows *sql.Rows) (*vmx.AttributeRecord, error) {
	var (
		id        int64
		remoteUID sql.NullInt64
		date      sql.NullInt64
		sender    sql.NullString
		callback  sql.NullString
		duration  sql.NullInt64
		expires   sql.NullInt64
		trashed   sql.NullInt64
		flags     sql.NullInt64
	)
	if err := rows.Scan(&id, &remoteUID, &date, &sender, &callback, &duration, &expires, &trashed, &flags); err != nil {
		return nil, fmt.Errorf("scanning voicemail record: %w", err)
	}

	rec := &vmx.AttributeRecord{
		ID:          id,
		RemoteUID:   remoteUID.Int64,
		Sender:      sender.String,
		CallbackNum: callback.String,
		Duration:    duration.Int64,
		Flags:       flags.Int64,
		Expiration:  epochTime(expires),
		Trashed:     epochTime(trashed),
	}
	if t := epochTime(date); t != nil {
		rec.Received = *t
	}
	return rec, nil
}

// epochTime converts an epoch-second column to absolute time. The archive
// uses 0 as a "not set" sentinel; 0 and negatives map to absent, never to
// an epoch-zero date.
func epochTime(v sql.NullInt64) *time.Time {
	if !v.Valid || v.Int64 <= 0 {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

// Path returns the attribute database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time checks
var (
	_ vmx.AttributeStore  = (*Store)(nil)
	_ vmx.AttributeOpener = Opener{}
)
