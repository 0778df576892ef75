// Package backup discovers, selects, and validates candidate backups
// under a backup root directory.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"vmx-go/internal/vmx"

	"github.com/google/uuid"
	"howett.net/plist"
)

// Well-known file names inside a backup directory.
const (
	infoFileName     = "Info.plist"
	manifestFileName = "Manifest.plist"
	catalogFileName  = "Manifest.db"
	statusFileName   = "Status.plist"
)

var hexIdentifier = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// IsIdentifier reports whether name has a recognized backup identifier
// shape: 40 hex characters or a UUID.
func IsIdentifier(name string) bool {
	if hexIdentifier.MatchString(name) {
		return true
	}
	_, err := uuid.Parse(name)
	return err == nil
}

// infoPlist is the subset of the backup's Info.plist we care about.
type infoPlist struct {
	DeviceName     string    `plist:"Device Name"`
	ProductVersion string    `plist:"Product Version"`
	LastBackupDate time.Time `plist:"Last Backup Date"`
}

// manifestPlist is the subset of the backup's Manifest.plist we care about.
type manifestPlist struct {
	IsEncrypted bool   `plist:"IsEncrypted"`
	Version     string `plist:"Version"`
}

// ParseDescriptor builds a BackupDescriptor from the declarative metadata
// files at the root of one backup directory.
func ParseDescriptor(dir string) (*vmx.BackupDescriptor, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving backup path: %w", err)
	}

	var info infoPlist
	if err := decodePlist(filepath.Join(absDir, infoFileName), &info); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", infoFileName, err)
	}

	var manifest manifestPlist
	if err := decodePlist(filepath.Join(absDir, manifestFileName), &manifest); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", manifestFileName, err)
	}

	return &vmx.BackupDescriptor{
		Identifier:     filepath.Base(absDir),
		DeviceName:     info.DeviceName,
		ProductVersion: info.ProductVersion,
		FormatVersion:  manifest.Version,
		LastBackup:     info.LastBackupDate,
		Encrypted:      manifest.IsEncrypted,
		Root:           absDir,
	}, nil
}

// decodePlist reads and unmarshals a property list file (XML or binary).
func decodePlist(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if _, err := plist.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding property list: %w", err)
	}
	return nil
}
