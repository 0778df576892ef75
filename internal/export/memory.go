package export

import (
	"fmt"
	"io"
	"sync"

	"vmx-go/internal/vmx"
)

// MemoryDestination keeps exported objects in memory. Use in tests.
type MemoryDestination struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryDestination creates an empty in-memory destination.
func NewMemoryDestination() *MemoryDestination {
	return &MemoryDestination{objects: make(map[string][]byte)}
}

// Put stores the object under key, replacing any previous object.
func (d *MemoryDestination) Put(key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.objects[key] = data
	return nil
}

// Validate always succeeds for the in-memory destination.
func (d *MemoryDestination) Validate() error { return nil }

// Get returns the stored object, or nil if no object exists under key.
func (d *MemoryDestination) Get(key string) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.objects[key]
}

// Keys returns the stored object keys in unspecified order.
func (d *MemoryDestination) Keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]string, 0, len(d.objects))
	for k := range d.objects {
		keys = append(keys, k)
	}
	return keys
}

// Compile-time check
var _ vmx.Destination = (*MemoryDestination)(nil)
