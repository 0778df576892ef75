package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	"vmx-go/internal/vmx"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// catalogFileName is the well-known name of the file catalog database
// inside a backup directory.
const catalogFileName = "Manifest.db"

// searchPattern is one step of a cascading query. Patterns run in order,
// most specific first, and the first non-empty result set wins: precise
// matches avoid false positives, general ones keep legacy archive layouts
// working without version negotiation.
type searchPattern struct {
	name  string
	where string
	args  []any
}

// attributeDBPatterns locate the voicemail attribute database across
// archive-format variants. Producer versions have moved files between
// domains and shuffled path prefixes; the suffix match is the net that
// catches whatever convention an unknown version used.
var attributeDBPatterns = []searchPattern{
	{
		name:  "canonical domain and path",
		where: "domain = ? AND relativePath = ?",
		args:  []any{"HomeDomain", "Library/Voicemail/voicemail.db"},
	},
	{
		name:  "canonical path, any domain",
		where: "relativePath = ?",
		args:  []any{"Library/Voicemail/voicemail.db"},
	},
	{
		name:  "suffix match anywhere",
		where: "relativePath LIKE ?",
		args:  []any{"%voicemail.db"},
	},
}

// audioPatterns locate voicemail audio payloads. Each step covers both
// container formats the producing devices have written.
var audioPatterns = []searchPattern{
	{
		name:  "canonical domain and prefix",
		where: "domain = ? AND relativePath LIKE ? AND (relativePath LIKE ? OR relativePath LIKE ?)",
		args:  []any{"HomeDomain", "Library/Voicemail/%", "%.amr", "%.m4a"},
	},
	{
		name:  "canonical prefix, any domain",
		where: "relativePath LIKE ? AND (relativePath LIKE ? OR relativePath LIKE ?)",
		args:  []any{"Library/Voicemail/%", "%.amr", "%.m4a"},
	},
	{
		name:  "extension match anywhere",
		where: "relativePath LIKE ? OR relativePath LIKE ?",
		args:  []any{"%.amr", "%.m4a"},
	},
}

// SQLiteCatalog implements vmx.Catalog over a backup's Manifest.db.
type SQLiteCatalog struct {
	db     *sql.DB
	path   string
	logger vmx.Logger
}

// Open opens the catalog database read-only.
func Open(path string, logger vmx.Logger) (*SQLiteCatalog, error) {
	db, err := OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteCatalog{db: db, path: path, logger: logger}, nil
}

// OpenReadOnly opens a SQLite database in read-only, immutable mode. The
// backup is never written to; immutable also sidesteps stale -wal files
// a producer may have left behind.
func OpenReadOnly(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// FindByIdentity computes the content address for (domain, relativePath)
// and returns the hash if the catalog's primary table lists it.
func (c *SQLiteCatalog) FindByIdentity(domain, relativePath string) (string, error) {
	hash := Address(domain, relativePath)

	var fileID string
	err := c.db.QueryRow("SELECT fileID FROM Files WHERE fileID = ?", hash).Scan(&fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil // Not found
		}
		return "", fmt.Errorf("finding file by identity: %w", err)
	}
	return fileID, nil
}

// LocateAttributeDatabase cascades through the attribute database
// patterns. Exhausting the cascade is a supported state, not an error.
func (c *SQLiteCatalog) LocateAttributeDatabase() (*vmx.CatalogEntry, error) {
	entries, err := c.searchCascade(attributeDBPatterns)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// LocateAudioPayloads cascades through the audio payload patterns.
func (c *SQLiteCatalog) LocateAudioPayloads() ([]vmx.CatalogEntry, error) {
	return c.searchCascade(audioPatterns)
}

// searchCascade runs each pattern in order and short-circuits on the
// first non-empty result set.
func (c *SQLiteCatalog) searchCascade(patterns []searchPattern) ([]vmx.CatalogEntry, error) {
	for _, p := range patterns {
		entries, err := c.queryEntries(p.where, p.args...)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p.name, err)
		}
		if len(entries) > 0 {
			c.logger.Debug("catalog pattern matched", "pattern", p.name, "entries", len(entries))
			return entries, nil
		}
		c.logger.Debug("catalog pattern empty, falling through", "pattern", p.name)
	}
	return nil, nil
}

func (c *SQLiteCatalog) queryEntries(where string, args ...any) ([]vmx.CatalogEntry, error) {
	query := "SELECT fileID, domain, relativePath FROM Files WHERE " + where + " ORDER BY relativePath"
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []vmx.CatalogEntry
	for rows.Next() {
		var e vmx.CatalogEntry
		if err := rows.Scan(&e.FileID, &e.Domain, &e.RelativePath); err != nil {
			return nil, fmt.Errorf("scanning catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EntryCount returns the number of rows in the catalog's primary table.
func (c *SQLiteCatalog) EntryCount() (int64, error) {
	var count int64
	if err := c.db.QueryRow("SELECT COUNT(*) FROM Files").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting catalog entries: %w", err)
	}
	return count, nil
}

// Path returns the catalog database file path.
func (c *SQLiteCatalog) Path() string {
	return c.path
}

// Close closes the database connection.
func (c *SQLiteCatalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteCatalog implements vmx.Catalog
var _ vmx.Catalog = (*SQLiteCatalog)(nil)
