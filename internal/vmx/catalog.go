package vmx

// Catalog answers queries against one backup's file catalog database.
// Implementations open the database read-only; Close releases it.
type Catalog interface {
	// FindByIdentity computes the content address for the given logical
	// identity and returns the hash if the catalog lists it, "" otherwise.
	FindByIdentity(domain, relativePath string) (string, error)

	// LocateAttributeDatabase runs the cascading pattern search for the
	// voicemail attribute database. A nil entry with a nil error means the
	// cascade was exhausted without a hit — a supported, file-only state.
	LocateAttributeDatabase() (*CatalogEntry, error)

	// LocateAudioPayloads runs the cascading pattern search for audio
	// payloads. An empty result means the cascade found nothing; the
	// caller decides whether that is fatal.
	LocateAudioPayloads() ([]CatalogEntry, error)

	// EntryCount returns the number of rows in the catalog's primary table.
	EntryCount() (int64, error)

	// Close closes the database connection.
	Close() error
}

// ContentStore copies content-addressed bytes out of a backup into a
// work area.
type ContentStore interface {
	// Extract resolves the hash's bucketed storage path, copies the bytes
	// to destName inside the work area, and returns the destination path.
	// A catalog entry whose physical file was never materialized yields
	// ("", nil): absent, not an error.
	Extract(hash, destName string) (string, error)
}

// Archive constructs per-backup access objects. Implemented by the
// catalog package; seam for service tests.
type Archive interface {
	OpenCatalog(desc *BackupDescriptor) (Catalog, error)
	NewContentStore(desc *BackupDescriptor, workDir string) ContentStore
}
