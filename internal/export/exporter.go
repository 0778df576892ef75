package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vmx-go/internal/vmx"
)

// Exporter delivers every payload of an extraction result to a
// destination, each with a JSON sidecar.
type Exporter struct {
	dest   vmx.Destination
	logger vmx.Logger
}

// NewExporter creates an Exporter over the given destination.
func NewExporter(dest vmx.Destination, logger vmx.Logger) *Exporter {
	return &Exporter{dest: dest, logger: logger}
}

// ExportAll validates the destination, then exports each payload and its
// sidecar. Returns the number of payloads exported.
func (e *Exporter) ExportAll(result *vmx.ExtractResult) (int, error) {
	if err := e.dest.Validate(); err != nil {
		return 0, fmt.Errorf("validating destination: %w", err)
	}

	used := make(map[string]struct{}, len(result.Payloads))
	for i, p := range result.Payloads {
		key := objectName(p)
		// Two records can share a received second and caller; a repeated
		// key would silently replace the earlier object.
		if _, dup := used[key]; dup {
			ext := filepath.Ext(key)
			key = strings.TrimSuffix(key, ext) + "_" + hashTag(p.FileID) + ext
		}
		used[key] = struct{}{}

		if err := e.exportOne(result.Backup, p, key); err != nil {
			return i, fmt.Errorf("exporting %s: %w", key, err)
		}
		e.logger.Debug("payload exported", "key", key, "matched", p.Record != nil)
	}
	return len(result.Payloads), nil
}

// hashTag shortens a content hash for use in a disambiguating suffix.
func hashTag(fileID string) string {
	if len(fileID) > 8 {
		return fileID[:8]
	}
	return fileID
}

func (e *Exporter) exportOne(backup *vmx.BackupDescriptor, p *vmx.ExtractedPayload, key string) error {
	f, err := os.Open(p.Path)
	if err != nil {
		return fmt.Errorf("opening payload: %w", err)
	}
	defer f.Close()

	if err := e.dest.Put(key, f, p.Size); err != nil {
		return err
	}

	data, err := json.MarshalIndent(NewSidecar(backup, p), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sidecar: %w", err)
	}
	sidecarKey := strings.TrimSuffix(key, filepath.Ext(key)) + ".json"
	return e.dest.Put(sidecarKey, bytes.NewReader(data), int64(len(data)))
}

// objectName picks the exported name. Matched payloads get a
// "<received>_<caller>" name so the output directory reads
// chronologically; unmatched payloads keep their original base name.
func objectName(p *vmx.ExtractedPayload) string {
	base := filepath.Base(p.Path)
	rec := p.Record
	if rec == nil || rec.Received.IsZero() {
		return base
	}
	stamp := rec.Received.UTC().Format("20060102T150405Z")
	caller := sanitizeNumber(rec.Sender)
	if caller == "" {
		caller = "unknown"
	}
	return stamp + "_" + caller + filepath.Ext(base)
}

// sanitizeNumber keeps only characters safe in object keys and filenames.
func sanitizeNumber(number string) string {
	var b strings.Builder
	for _, r := range number {
		switch {
		case r >= '0' && r <= '9', r == '+':
			b.WriteRune(r)
		}
	}
	return b.String()
}
