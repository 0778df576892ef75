package vmx

// Selector discovers candidate backups and picks one.
type Selector interface {
	// Discover enumerates parseable candidates under the backup root,
	// newest last-backup first. Unparseable candidates are logged and
	// skipped, never fatal.
	Discover() ([]*BackupDescriptor, error)

	// Select returns the backup matching identifier, or — when identifier
	// is empty — the sole candidate. Ambiguity and no-match both yield an
	// ErrNotFound BackupError enumerating the alternatives.
	Select(identifier string) (*BackupDescriptor, error)
}

// Validator checks structural completeness and version compatibility of a
// selected backup before any extraction work begins.
type Validator interface {
	Validate(desc *BackupDescriptor) error
}

// Reconciler pairs extracted payloads with attribute records. It never
// fails: every input survives to the output, matched or not.
type Reconciler interface {
	Reconcile(payloads []*ExtractedPayload, records []*AttributeRecord) *ReconcileReport
}

// ReconcileReport summarizes one reconciliation pass. Imbalance is
// informational, never an error.
type ReconcileReport struct {
	Matched   int
	Unmatched []*ExtractedPayload // audio with no metadata
	Surplus   []*AttributeRecord  // metadata with no corresponding audio
}
