package vmx

import "time"

// BackupDescriptor identifies one backup under the backup root.
// Descriptors are built by parsing the backup's metadata property lists
// and are never mutated after construction.
type BackupDescriptor struct {
	Identifier     string     // 40-hex or UUID-shaped directory name
	DeviceName     string     // human-readable, may be empty
	ProductVersion string     // producing device's OS version
	FormatVersion  string     // archive format version from the manifest
	LastBackup     time.Time  // zero if the metadata omits it
	Encrypted      bool
	Root           string     // absolute path to the backup directory
}

// CatalogEntry is one row of the backup's file catalog: a physical file
// identified by its content hash, tagged with the logical identity the
// producing device knew it by.
type CatalogEntry struct {
	FileID       string // content hash, primary key into the content store
	Domain       string
	RelativePath string
}

// Voicemail flag bit positions. The attribute schema does not document
// its bitmask; these match the producing device's observed values.
const (
	FlagRead int64 = 1 << 0
	FlagSpam int64 = 1 << 6
)

// AttributeRecord is one decoded row of the voicemail attribute database.
type AttributeRecord struct {
	ID          int64
	RemoteUID   int64
	Received    time.Time
	Sender      string
	CallbackNum string
	Duration    int64 // seconds
	Expiration  *time.Time // nil when the archive stored its 0 sentinel
	Trashed     *time.Time // nil unless the voicemail was deleted
	Flags       int64
}

// Read reports whether the voicemail was marked read on the device.
func (r *AttributeRecord) Read() bool { return r.Flags&FlagRead != 0 }

// Spam reports whether the voicemail was flagged as spam on the device.
func (r *AttributeRecord) Spam() bool { return r.Flags&FlagSpam != 0 }

// ExtractedPayload is one audio file copied out of the backup into the
// work area. Record stays nil until reconciliation attaches a match;
// it remains nil permanently when no attribute record is close enough.
type ExtractedPayload struct {
	FileID       string
	Domain       string
	RelativePath string
	Path         string // work-area path the bytes were copied to
	Format       string // inferred from the path extension ("amr", "m4a", ...)
	Size         int64
	Record       *AttributeRecord
}

// SkippedPayload records a catalog entry whose physical content could not
// be extracted. Skips are isolated per entry and never abort a run.
type SkippedPayload struct {
	Entry  CatalogEntry
	Reason string
}

// ExtractResult is everything one extraction pass produced.
type ExtractResult struct {
	Backup *BackupDescriptor

	// Payloads preserves catalog order. Every successfully extracted
	// payload appears here, matched or not.
	Payloads []*ExtractedPayload

	// Surplus holds attribute records no payload claimed.
	Surplus []*AttributeRecord

	// Skipped holds entries excluded by per-item extraction failures.
	Skipped []SkippedPayload

	// AttributesLoaded is false when the run degraded to file-only mode
	// (attribute database absent or malformed).
	AttributesLoaded bool

	WorkDir string
}
