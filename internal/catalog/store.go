package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"vmx-go/internal/vmx"
)

// Store copies content-addressed files out of a backup's bucketed storage
// into a work area. Pure filesystem operation layered on Address /
// StorageRelativePath; the work directory is created lazily and is
// exclusive to one run, so replace-on-write carries no partial-write hazard.
type Store struct {
	backupRoot string
	workDir    string
}

// NewStore creates a Store reading from backupRoot and writing to workDir.
func NewStore(backupRoot, workDir string) *Store {
	return &Store{backupRoot: backupRoot, workDir: workDir}
}

// Extract copies the bytes addressed by hash to destName inside the work
// area and returns the destination path. The catalog can reference files
// the producing device never materialized; that case yields ("", nil).
func (s *Store) Extract(hash, destName string) (string, error) {
	srcPath := filepath.Join(s.backupRoot, filepath.FromSlash(StorageRelativePath(hash)))

	src, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil // catalog entry without physical content
		}
		return "", fmt.Errorf("opening source content: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.workDir, 0755); err != nil {
		return "", fmt.Errorf("creating work directory: %w", err)
	}

	destPath := filepath.Join(s.workDir, destName)
	if err := writeFile(destPath, src); err != nil {
		return "", err
	}
	return destPath, nil
}

// writeFile writes data from r to destPath using atomic write (temp file + rename).
func writeFile(destPath string, r io.Reader) error {
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write content: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to finalize content: %w", err)
	}
	success = true
	return nil
}

// Archive wires the catalog package into the engine's per-backup seams.
type Archive struct {
	logger vmx.Logger
}

// NewArchive creates the production vmx.Archive implementation.
func NewArchive(logger vmx.Logger) *Archive {
	return &Archive{logger: logger}
}

// OpenCatalog opens the selected backup's catalog database read-only.
func (a *Archive) OpenCatalog(desc *vmx.BackupDescriptor) (vmx.Catalog, error) {
	return Open(filepath.Join(desc.Root, catalogFileName), a.logger)
}

// NewContentStore builds a Store over the selected backup's storage.
func (a *Archive) NewContentStore(desc *vmx.BackupDescriptor, workDir string) vmx.ContentStore {
	return NewStore(desc.Root, workDir)
}

// Compile-time checks
var (
	_ vmx.ContentStore = (*Store)(nil)
	_ vmx.Archive      = (*Archive)(nil)
)
