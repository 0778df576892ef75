// Package catalog reads a backup's file catalog database and copies
// content-addressed files out of its bucketed storage.
package catalog

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// Address computes the content hash for a logical identity: lower-hex
// SHA-1 over "domain-relativePath". Deterministic, so repeated extraction
// of the same identity is idempotent.
func Address(domain, relativePath string) string {
	sum := sha1.Sum([]byte(domain + "-" + relativePath))
	return hex.EncodeToString(sum[:])
}

// StorageRelativePath maps a content hash to its location relative to the
// backup root: the first two hex characters bucket the file.
// A too-short hash is a programmer error, not a recoverable condition.
func StorageRelativePath(hash string) string {
	if len(hash) < 2 {
		panic(fmt.Sprintf("content hash too short: %q", hash))
	}
	return hash[:2] + "/" + hash
}
