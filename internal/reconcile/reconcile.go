// Package reconcile pairs extracted audio payloads with voicemail
// attribute records. The two record sets share no foreign key, so the
// association is inferred from timestamp proximity and is best-effort:
// valid (each record claimed at most once) but not guaranteed optimal.
package reconcile

import (
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"vmx-go/internal/vmx"
)

// DefaultTolerance is the maximum distance between a payload's filename
// timestamp and a record's received time for the pair to match.
const DefaultTolerance = 5 * time.Second

// timestampPrefix matches the 10-digit Unix timestamp the producing
// device embeds at the start of voicemail filenames.
var timestampPrefix = regexp.MustCompile(`^(\d{10})`)

// PayloadTimestamp extracts the filename-embedded timestamp from a
// payload path. ok is false when the name carries no parseable timestamp;
// such payloads stay unmatched.
func PayloadTimestamp(path string) (time.Time, bool) {
	m := timestampPrefix.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0).UTC(), true
}

// TemporalReconciler matches payloads to records within a bounded
// tolerance window, greedily in payload order. Ties at equal distance go
// to the earliest record in iteration order; since records arrive sorted
// by received time descending, the outcome is deterministic for fixed
// inputs.
type TemporalReconciler struct {
	tolerance time.Duration
	logger    vmx.Logger
}

// New creates a reconciler. A non-positive tolerance falls back to
// DefaultTolerance.
func New(tolerance time.Duration, logger vmx.Logger) *TemporalReconciler {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &TemporalReconciler{tolerance: tolerance, logger: logger}
}

// Reconcile attaches at most one record to each payload. It mutates the
// payloads' Record fields in place and never fails: every payload
// survives (matched or not) and every unclaimed record is reported as
// surplus, never silently dropped.
func (r *TemporalReconciler) Reconcile(payloads []*vmx.ExtractedPayload, records []*vmx.AttributeRecord) *vmx.ReconcileReport {
	claimed := make([]bool, len(records))
	report := &vmx.ReconcileReport{}

	for _, p := range payloads {
		ts, ok := PayloadTimestamp(p.Path)
		if !ok {
			r.logger.Debug("payload has no parseable timestamp", "path", p.Path)
			report.Unmatched = append(report.Unmatched, p)
			continue
		}

		best := -1
		var bestDiff time.Duration
		for i, rec := range records {
			if claimed[i] || rec.Received.IsZero() {
				continue
			}
			diff := ts.Sub(rec.Received)
			if diff < 0 {
				diff = -diff
			}
			if diff > r.tolerance {
				continue
			}
			if best == -1 || diff < bestDiff {
				best = i
				bestDiff = diff
			}
		}

		if best == -1 {
			report.Unmatched = append(report.Unmatched, p)
			continue
		}

		claimed[best] = true
		p.Record = records[best]
		report.Matched++
	}

	for i, rec := range records {
		if !claimed[i] {
			report.Surplus = append(report.Surplus, rec)
		}
	}

	if len(report.Surplus) > 0 {
		r.logger.Debug("records without corresponding audio", "count", len(report.Surplus))
	}
	return report
}

// Compile-time check
var _ vmx.Reconciler = (*TemporalReconciler)(nil)
