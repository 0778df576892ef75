package export_test

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vmx-go/internal/export"

	"filippo.io/age"
)

func TestEncryptingDestination(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("generating identity: %v", err)
	}
	recipientPath := filepath.Join(t.TempDir(), "recipients.txt")
	if err := os.WriteFile(recipientPath, []byte(identity.Recipient().String()+"\n"), 0600); err != nil {
		t.Fatalf("writing recipient file: %v", err)
	}

	t.Run("objects round-trip through encryption", func(t *testing.T) {
		inner := export.NewMemoryDestination()
		dest, err := export.NewEncryptingDestination(inner, recipientPath)
		if err != nil {
			t.Fatalf("NewEncryptingDestination() error = %v", err)
		}

		plaintext := "voicemail audio bytes"
		if err := dest.Put("1710255022.amr", strings.NewReader(plaintext), int64(len(plaintext))); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		ciphertext := inner.Get("1710255022.amr.age")
		if ciphertext == nil {
			t.Fatalf("no object under .age key; keys = %v", inner.Keys())
		}
		if strings.Contains(string(ciphertext), plaintext) {
			t.Error("ciphertext contains the plaintext")
		}

		r, err := age.Decrypt(strings.NewReader(string(ciphertext)), identity)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		decrypted, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("reading decrypted stream: %v", err)
		}
		if string(decrypted) != plaintext {
			t.Errorf("decrypted = %q, want %q", decrypted, plaintext)
		}
	})

	t.Run("missing recipient file fails construction", func(t *testing.T) {
		_, err := export.NewEncryptingDestination(export.NewMemoryDestination(), filepath.Join(t.TempDir(), "nope.txt"))
		if err == nil {
			t.Error("NewEncryptingDestination() error = nil, want open failure")
		}
	})
}
