package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vmx-go/internal/vmx"
)

// Selector enumerates candidate backups under a root directory and
// deterministically picks one.
type Selector struct {
	root   string
	logger vmx.Logger
}

// NewSelector creates a Selector over the given backup root.
func NewSelector(root string, logger vmx.Logger) *Selector {
	return &Selector{root: root, logger: logger}
}

// Discover enumerates identifier-shaped subdirectories of the root and
// parses each into a descriptor, newest last-backup first. A candidate
// that fails to parse is logged and skipped — one bad backup must not
// hide the others.
func (s *Selector) Discover() ([]*vmx.BackupDescriptor, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vmx.NewBackupError(vmx.ErrNotFound, s.root,
				"backup root does not exist",
				"check the backup_root setting or create a backup first")
		}
		return nil, fmt.Errorf("reading backup root: %w", err)
	}

	var candidates []*vmx.BackupDescriptor
	for _, entry := range entries {
		if !entry.IsDir() || !IsIdentifier(entry.Name()) {
			continue
		}
		desc, err := ParseDescriptor(filepath.Join(s.root, entry.Name()))
		if err != nil {
			s.logger.Warn("skipping unparseable backup candidate",
				"identifier", entry.Name(), "error", err)
			continue
		}
		candidates = append(candidates, desc)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].LastBackup.After(candidates[j].LastBackup)
	})
	return candidates, nil
}

// Select picks the backup matching identifier, or the sole candidate when
// identifier is empty. Everything else is an ErrNotFound enumerating the
// alternatives so the caller can disambiguate.
func (s *Selector) Select(identifier string) (*vmx.BackupDescriptor, error) {
	candidates, err := s.Discover()
	if err != nil {
		return nil, err
	}

	if identifier != "" {
		for _, c := range candidates {
			if strings.EqualFold(c.Identifier, identifier) {
				return c, nil
			}
		}
		return nil, vmx.NewBackupError(vmx.ErrNotFound, s.root,
			fmt.Sprintf("no backup with identifier %s; available: %s", identifier, describeCandidates(candidates)),
			"pass one of the listed identifiers")
	}

	switch len(candidates) {
	case 0:
		return nil, vmx.NewBackupError(vmx.ErrNotFound, s.root,
			"no backups found",
			"connect the device and create a backup, or point backup_root at the right directory")
	case 1:
		return candidates[0], nil
	default:
		return nil, vmx.NewBackupError(vmx.ErrNotFound, s.root,
			fmt.Sprintf("%d backups found: %s", len(candidates), describeCandidates(candidates)),
			"pass --backup with one of the listed identifiers")
	}
}

// describeCandidates renders candidates as "id (device, last backup)"
// entries, preserving the newest-first order Discover produced.
func describeCandidates(candidates []*vmx.BackupDescriptor) string {
	if len(candidates) == 0 {
		return "none"
	}
	parts := make([]string, len(candidates))
	for i, c := range candidates {
		when := "never"
		if !c.LastBackup.IsZero() {
			when = c.LastBackup.UTC().Format("2006-01-02")
		}
		parts[i] = fmt.Sprintf("%s (%s, %s)", c.Identifier, c.DeviceName, when)
	}
	return strings.Join(parts, ", ")
}

// Compile-time check
var _ vmx.Selector = (*Selector)(nil)
