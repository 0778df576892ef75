package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vmx-go/internal/catalog"
	"vmx-go/internal/vmx"
)

// minFormatVersion is the compatibility floor: the bucketed hash[:2]/hash
// content layout appeared with this archive format version, and the
// content store cannot address anything older.
const minFormatVersion = "10.0"

// defaultMaxAge is the staleness threshold. Staleness is a warning, never
// a failure.
const defaultMaxAge = 180 * 24 * time.Hour

// Validator checks structural completeness and version compatibility of a
// selected backup before extraction begins.
type Validator struct {
	maxAge time.Duration
	logger vmx.Logger
	clock  vmx.Clock
}

// NewValidator creates a Validator with the default staleness threshold.
func NewValidator(logger vmx.Logger, clock vmx.Clock) *Validator {
	return &Validator{maxAge: defaultMaxAge, logger: logger, clock: clock}
}

// Validate runs every structural check. Any failure is fatal and typed;
// it aborts the run before any extraction work begins.
func (v *Validator) Validate(desc *vmx.BackupDescriptor) error {
	for _, name := range []string{infoFileName, manifestFileName, catalogFileName} {
		if _, err := os.Stat(filepath.Join(desc.Root, name)); err != nil {
			return vmx.NewBackupError(vmx.ErrInvalid, desc.Root,
				fmt.Sprintf("required file %s missing", name),
				"re-create the backup; this one is incomplete")
		}
	}

	if desc.Encrypted {
		return vmx.NewBackupError(vmx.ErrEncrypted, desc.Root,
			"the backup manifest declares encryption",
			"create an unencrypted backup, or decrypt this one with its credential first")
	}

	if compareVersions(desc.FormatVersion, minFormatVersion) < 0 {
		return vmx.NewBackupError(vmx.ErrInvalid, desc.Root,
			fmt.Sprintf("archive format version %s is below the supported floor %s", desc.FormatVersion, minFormatVersion),
			"re-create the backup with a current device")
	}

	if err := v.checkCatalog(desc); err != nil {
		return err
	}

	// A Status.plist is optional, but if present it must at least parse.
	statusPath := filepath.Join(desc.Root, statusFileName)
	if _, err := os.Stat(statusPath); err == nil {
		var status map[string]any
		if err := decodePlist(statusPath, &status); err != nil {
			return vmx.NewBackupError(vmx.ErrInvalid, desc.Root,
				fmt.Sprintf("completeness marker %s is unparseable", statusFileName),
				"the backup may have been interrupted; re-create it")
		}
	}

	if !desc.LastBackup.IsZero() && v.clock.Now().Sub(desc.LastBackup) > v.maxAge {
		v.logger.Warn("backup is stale",
			"identifier", desc.Identifier,
			"last_backup", desc.LastBackup.UTC().Format(time.RFC3339))
	}

	return nil
}

// checkCatalog verifies the catalog database opens and is non-empty. An
// open or query failure on a backup whose manifest did not declare
// encryption usually means the catalog itself is encrypted.
func (v *Validator) checkCatalog(desc *vmx.BackupDescriptor) error {
	cat, err := catalog.Open(filepath.Join(desc.Root, catalogFileName), v.logger)
	if err != nil {
		return vmx.NewBackupError(vmx.ErrInvalid, desc.Root,
			fmt.Sprintf("catalog database unreadable: %v", err),
			"re-create the backup")
	}
	defer cat.Close()

	count, err := cat.EntryCount()
	if err != nil {
		if strings.Contains(err.Error(), "not a database") {
			return vmx.NewBackupError(vmx.ErrEncrypted, desc.Root,
				"catalog database rejects reads; it is likely encrypted",
				"create an unencrypted backup, or decrypt this one with its credential first")
		}
		return vmx.NewBackupError(vmx.ErrInvalid, desc.Root,
			fmt.Sprintf("catalog database unreadable: %v", err),
			"re-create the backup")
	}
	if count == 0 {
		return vmx.NewBackupError(vmx.ErrInvalid, desc.Root,
			"catalog database is empty",
			"the backup never completed; re-create it")
	}
	return nil
}

// compareVersions compares dotted numeric versions. Missing components
// count as zero, so "10" == "10.0".
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Compile-time check
var _ vmx.Validator = (*Validator)(nil)
