package export

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"vmx-go/internal/vmx"

	"filippo.io/age"
)

// EncryptingDestination wraps another destination and age-encrypts every
// object on the way through. Keys gain an ".age" suffix so a listing
// shows what is ciphertext.
type EncryptingDestination struct {
	inner      vmx.Destination
	recipients []age.Recipient
}

// NewEncryptingDestination reads age recipients from recipientPath (one
// per line, comments allowed) and wraps inner.
func NewEncryptingDestination(inner vmx.Destination, recipientPath string) (*EncryptingDestination, error) {
	f, err := os.Open(recipientPath)
	if err != nil {
		return nil, fmt.Errorf("opening recipient file: %w", err)
	}
	defer f.Close()

	recipients, err := age.ParseRecipients(f)
	if err != nil {
		return nil, fmt.Errorf("parsing recipients: %w", err)
	}
	return &EncryptingDestination{inner: inner, recipients: recipients}, nil
}

// Put encrypts the object and stores it under key + ".age". The
// ciphertext length is only known after encryption, so the stream is
// buffered once.
func (d *EncryptingDestination) Put(key string, r io.Reader, size int64) error {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, d.recipients...)
	if err != nil {
		return fmt.Errorf("starting encryption: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("encrypting object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return d.inner.Put(key+".age", &buf, int64(buf.Len()))
}

// Validate delegates to the wrapped destination.
func (d *EncryptingDestination) Validate() error {
	return d.inner.Validate()
}

// Compile-time check
var _ vmx.Destination = (*EncryptingDestination)(nil)
