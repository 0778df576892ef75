package vmx

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match these with errors.Is; remediation differs
// per kind, so the CLI layer switches on them for user-facing text.
var (
	// ErrNotFound: no candidate backups, or no match for an explicit
	// identifier. The error message enumerates discovered alternatives.
	ErrNotFound = errors.New("backup not found")

	// ErrInvalid: the backup is structurally unusable (missing required
	// files, empty or corrupt catalog, incompatible format version).
	ErrInvalid = errors.New("backup invalid")

	// ErrEncrypted: the archive requires a credential. Distinct from
	// ErrInvalid because the fix is a credential, not a new backup.
	ErrEncrypted = errors.New("backup encrypted")

	// ErrNoContent: the catalog cascade exhausted every pattern without
	// finding a single audio payload. The backup may be perfectly valid.
	ErrNoContent = errors.New("no voicemail content in backup")

	// ErrMalformedAttributeStore: the extracted attribute database failed
	// its well-formedness probe. Recoverable — the run degrades to
	// file-only mode rather than aborting.
	ErrMalformedAttributeStore = errors.New("malformed attribute database")
)

// BackupError wraps an error kind with the failing backup's path and
// remediation text for user-facing reporting.
type BackupError struct {
	Kind        error
	Path        string
	Detail      string
	Remediation string
}

func (e *BackupError) Error() string {
	msg := e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	return msg
}

func (e *BackupError) Unwrap() error { return e.Kind }

// NewBackupError builds a BackupError of the given kind.
func NewBackupError(kind error, path, detail, remediation string) *BackupError {
	return &BackupError{Kind: kind, Path: path, Detail: detail, Remediation: remediation}
}

// Remediation returns suggested remediation text for err, if it carries any.
func Remediation(err error) string {
	var be *BackupError
	if errors.As(err, &be) {
		return be.Remediation
	}
	return ""
}
