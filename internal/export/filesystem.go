// Package export delivers reconciled voicemails to a configured
// destination: a local directory, an S3 bucket, or memory (tests).
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"vmx-go/internal/vmx"
)

// FileSystemDestination writes exported objects under a root directory.
type FileSystemDestination struct {
	root string
}

// NewFileSystemDestination creates a destination rooted at the given path.
func NewFileSystemDestination(root string) (*FileSystemDestination, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileSystemDestination{root: root}, nil
}

// Put stores the object under root/key, replacing any previous object.
func (d *FileSystemDestination) Put(key string, r io.Reader, size int64) error {
	destPath := filepath.Join(d.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	return writeFile(destPath, r, size)
}

// Validate verifies the output root exists and is a directory.
func (d *FileSystemDestination) Validate() error {
	info, err := os.Stat(d.root)
	if err != nil {
		return fmt.Errorf("output directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path is not a directory: %s", d.root)
	}
	return nil
}

// writeFile writes data from r to the specified path using atomic write
// (temp file + rename) and checks the byte count against the declared size.
func writeFile(destPath string, r io.Reader, expectedSize int64) error {
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

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if expectedSize >= 0 && written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to finalize object: %w", err)
	}
	success = true
	return nil
}

// Compile-time check
var _ vmx.Destination = (*FileSystemDestination)(nil)
