package vmx

import "io"

// Destination receives exported voicemails. All operations stream via
// io.Reader so large payloads never live in memory twice.
type Destination interface {
	// Put stores size bytes from r under key. Storing the same key twice
	// replaces the previous object.
	Put(key string, r io.Reader, size int64) error

	// Validate verifies the destination is accessible and properly
	// configured before a run commits to it.
	Validate() error
}
