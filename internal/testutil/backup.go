// Package testutil builds real on-disk backup fixtures for tests:
// property-list metadata, a SQLite file catalog, bucketed content files,
// and optionally a voicemail attribute database.
package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vmx-go/internal/catalog"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"howett.net/plist"
)

// DefaultIdentifier is a valid 40-hex backup identifier for fixtures.
const DefaultIdentifier = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1234"

type fixtureEntry struct {
	domain      string
	relPath     string
	content     []byte
	materialize bool
}

// Voicemail is one attribute database row for fixtures. Zero-valued
// timestamps become the archive's 0 sentinel.
type Voicemail struct {
	RemoteUID  int64
	Date       int64
	Sender     string
	Callback   string
	Duration   int64
	Expiration int64
	Trashed    int64
	Flags      int64
}

// BackupBuilder assembles one backup directory. Build may be called once.
type BackupBuilder struct {
	t              *testing.T
	root           string
	identifier     string
	deviceName     string
	productVersion string
	formatVersion  string
	lastBackup     time.Time
	encrypted      bool
	skipInfo       bool
	entries        []fixtureEntry
	voicemails     []Voicemail
	attrDomain     string
	attrPath       string
}

// NewBackup starts a builder for a backup under root (the backup root
// directory, typically t.TempDir()).
func NewBackup(t *testing.T, root, identifier string) *BackupBuilder {
	t.Helper()
	return &BackupBuilder{
		t:              t,
		root:           root,
		identifier:     identifier,
		deviceName:     "Test Device",
		productVersion: "17.4",
		formatVersion:  "10.0",
		lastBackup:     time.Date(2024, 3, 12, 15, 30, 0, 0, time.UTC),
		attrDomain:     "HomeDomain",
		attrPath:       "Library/Voicemail/voicemail.db",
	}
}

func (b *BackupBuilder) DeviceName(name string) *BackupBuilder {
	b.deviceName = name
	return b
}

func (b *BackupBuilder) FormatVersion(v string) *BackupBuilder {
	b.formatVersion = v
	return b
}

func (b *BackupBuilder) LastBackup(t time.Time) *BackupBuilder {
	b.lastBackup = t
	return b
}

func (b *BackupBuilder) Encrypted() *BackupBuilder {
	b.encrypted = true
	return b
}

// WithoutInfo omits Info.plist, producing an unparseable candidate.
func (b *BackupBuilder) WithoutInfo() *BackupBuilder {
	b.skipInfo = true
	return b
}

// AddFile adds a catalog entry with materialized content.
func (b *BackupBuilder) AddFile(domain, relPath string, content []byte) *BackupBuilder {
	b.entries = append(b.entries, fixtureEntry{domain: domain, relPath: relPath, content: content, materialize: true})
	return b
}

// AddGhostFile adds a catalog entry whose physical content is deliberately
// absent, as happens when the producing device never wrote it.
func (b *BackupBuilder) AddGhostFile(domain, relPath string) *BackupBuilder {
	b.entries = append(b.entries, fixtureEntry{domain: domain, relPath: relPath})
	return b
}

// AttrIdentity overrides the logical identity the attribute database is
// cataloged under, for legacy-layout tests.
func (b *BackupBuilder) AttrIdentity(domain, relPath string) *BackupBuilder {
	b.attrDomain = domain
	b.attrPath = relPath
	return b
}

// AddVoicemail queues an attribute database row. The first call makes
// Build create and catalog a voicemail.db.
func (b *BackupBuilder) AddVoicemail(v Voicemail) *BackupBuilder {
	b.voicemails = append(b.voicemails, v)
	return b
}

// RawAttributeDB catalogs content as the attribute database without
// building one, for malformed-database tests.
func (b *BackupBuilder) RawAttributeDB(content []byte) *BackupBuilder {
	b.entries = append(b.entries, fixtureEntry{domain: b.attrDomain, relPath: b.attrPath, content: content, materialize: true})
	return b
}

// Build writes everything to disk and returns the backup directory path.
func (b *BackupBuilder) Build() string {
	b.t.Helper()

	dir := filepath.Join(b.root, b.identifier)
	if err := os.MkdirAll(dir, 0755); err != nil {
		b.t.Fatalf("creating backup dir: %v", err)
	}

	if !b.skipInfo {
		b.writePlist(filepath.Join(dir, "Info.plist"), map[string]any{
			"Device Name":      b.deviceName,
			"Product Version":  b.productVersion,
			"Last Backup Date": b.lastBackup,
		})
	}
	b.writePlist(filepath.Join(dir, "Manifest.plist"), map[string]any{
		"IsEncrypted": b.encrypted,
		"Version":     b.formatVersion,
	})

	entries := b.entries
	if len(b.voicemails) > 0 {
		entries = append(entries, fixtureEntry{
			domain:      b.attrDomain,
			relPath:     b.attrPath,
			content:     VoicemailDB(b.t, b.voicemails),
			materialize: true,
		})
	}

	b.writeCatalog(filepath.Join(dir, "Manifest.db"), entries)

	for _, e := range entries {
		if !e.materialize {
			continue
		}
		hash := catalog.Address(e.domain, e.relPath)
		dest := filepath.Join(dir, hash[:2], hash)
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			b.t.Fatalf("creating bucket dir: %v", err)
		}
		if err := os.WriteFile(dest, e.content, 0644); err != nil {
			b.t.Fatalf("writing content file: %v", err)
		}
	}

	return dir
}

func (b *BackupBuilder) writePlist(path string, v any) {
	b.t.Helper()
	data, err := plist.Marshal(v, plist.XMLFormat)
	if err != nil {
		b.t.Fatalf("marshaling plist: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		b.t.Fatalf("writing plist: %v", err)
	}
}

func (b *BackupBuilder) writeCatalog(path string, entries []fixtureEntry) {
	b.t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		b.t.Fatalf("creating catalog db: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE Files (
		fileID TEXT PRIMARY KEY,
		domain TEXT,
		relativePath TEXT,
		flags INTEGER,
		file BLOB
	)`); err != nil {
		b.t.Fatalf("creating Files table: %v", err)
	}

	for _, e := range entries {
		hash := catalog.Address(e.domain, e.relPath)
		if _, err := db.Exec(
			"INSERT INTO Files (fileID, domain, relativePath, flags) VALUES (?, ?, ?, 1)",
			hash, e.domain, e.relPath); err != nil {
			b.t.Fatalf("inserting catalog entry: %v", err)
		}
	}
}

// VoicemailDB builds a voicemail attribute database in a temp file and
// returns its bytes, ready to be cataloged as backup content.
func VoicemailDB(t *testing.T, rows []Voicemail) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "voicemail.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("creating voicemail db: %v", err)
	}

	if _, err := db.Exec(`CREATE TABLE voicemail (
		remote_uid INTEGER,
		date INTEGER,
		token TEXT,
		sender TEXT,
		callback_num TEXT,
		duration INTEGER,
		expiration INTEGER,
		trashed_date INTEGER,
		flags INTEGER
	)`); err != nil {
		db.Close()
		t.Fatalf("creating voicemail table: %v", err)
	}

	for _, v := range rows {
		if _, err := db.Exec(
			`INSERT INTO voicemail (remote_uid, date, sender, callback_num, duration, expiration, trashed_date, flags)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			v.RemoteUID, v.Date, v.Sender, v.Callback, v.Duration, v.Expiration, v.Trashed, v.Flags); err != nil {
			db.Close()
			t.Fatalf("inserting voicemail row: %v", err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("closing voicemail db: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading voicemail db: %v", err)
	}
	return data
}
