package vmx

// AttributeStore streams decoded voicemail records out of an extracted
// attribute database.
type AttributeStore interface {
	// ReadAll returns every record, ordered by received time descending.
	// Deleted voicemails are filtered out unless includeDeleted is set.
	ReadAll(includeDeleted bool) ([]*AttributeRecord, error)

	// Close closes the database connection.
	Close() error
}

// AttributeOpener probes and opens extracted attribute databases.
type AttributeOpener interface {
	// IsWellFormed reports whether the file at path looks like a usable
	// attribute database. A corrupted or truncated extraction fails the
	// probe and the run degrades to file-only mode.
	IsWellFormed(path string) bool

	Open(path string) (AttributeStore, error)
}
