package backup_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vmx-go/internal/backup"
	"vmx-go/internal/testutil"
	"vmx-go/internal/vmx"
)

func newValidator(t *testing.T) *backup.Validator {
	t.Helper()
	return backup.NewValidator(vmx.NewNopLogger(), testutil.FixedClock())
}

func parseFixture(t *testing.T, dir string) *vmx.BackupDescriptor {
	t.Helper()
	desc, err := backup.ParseDescriptor(dir)
	if err != nil {
		t.Fatalf("ParseDescriptor() error = %v", err)
	}
	return desc
}

func TestValidator_Validate(t *testing.T) {
	t.Run("complete backup passes", func(t *testing.T) {
		dir := testutil.NewBackup(t, t.TempDir(), testutil.DefaultIdentifier).
			AddFile("HomeDomain", "Library/Voicemail/1710255022.amr", []byte("a")).
			Build()

		if err := newValidator(t).Validate(parseFixture(t, dir)); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})

	t.Run("missing catalog database is invalid", func(t *testing.T) {
		dir := testutil.NewBackup(t, t.TempDir(), testutil.DefaultIdentifier).
			AddFile("HomeDomain", "Library/Voicemail/1710255022.amr", []byte("a")).
			Build()
		desc := parseFixture(t, dir)
		if err := os.Remove(filepath.Join(dir, "Manifest.db")); err != nil {
			t.Fatalf("removing catalog: %v", err)
		}

		err := newValidator(t).Validate(desc)
		if !errors.Is(err, vmx.ErrInvalid) {
			t.Errorf("Validate() error = %v, want ErrInvalid", err)
		}
	})

	t.Run("declared encryption is rejected", func(t *testing.T) {
		dir := testutil.NewBackup(t, t.TempDir(), testutil.DefaultIdentifier).
			Encrypted().
			AddFile("HomeDomain", "Library/Voicemail/1710255022.amr", []byte("a")).
			Build()

		err := newValidator(t).Validate(parseFixture(t, dir))
		if !errors.Is(err, vmx.ErrEncrypted) {
			t.Errorf("Validate() error = %v, want ErrEncrypted", err)
		}
		if remedy := vmx.Remediation(err); remedy == "" {
			t.Error("encrypted backup error should carry a remediation hint")
		}
	})

	t.Run("format version below the floor is invalid", func(t *testing.T) {
		dir := testutil.NewBackup(t, t.TempDir(), testutil.DefaultIdentifier).
			FormatVersion("9.2").
			AddFile("HomeDomain", "Library/Voicemail/1710255022.amr", []byte("a")).
			Build()

		err := newValidator(t).Validate(parseFixture(t, dir))
		if !errors.Is(err, vmx.ErrInvalid) {
			t.Errorf("Validate() error = %v, want ErrInvalid", err)
		}
	})

	t.Run("empty catalog is invalid", func(t *testing.T) {
		dir := testutil.NewBackup(t, t.TempDir(), testutil.DefaultIdentifier).Build()

		err := newValidator(t).Validate(parseFixture(t, dir))
		if !errors.Is(err, vmx.ErrInvalid) {
			t.Errorf("Validate() error = %v, want ErrInvalid", err)
		}
	})

	t.Run("undeclared catalog encryption is recognized", func(t *testing.T) {
		dir := testutil.NewBackup(t, t.TempDir(), testutil.DefaultIdentifier).
			AddFile("HomeDomain", "Library/Voicemail/1710255022.amr", []byte("a")).
			Build()
		desc := parseFixture(t, dir)
		// Encrypted catalogs read as garbage to the driver.
		if err := os.WriteFile(filepath.Join(dir, "Manifest.db"), []byte("ciphertext, not sqlite"), 0644); err != nil {
			t.Fatalf("overwriting catalog: %v", err)
		}

		err := newValidator(t).Validate(desc)
		if !errors.Is(err, vmx.ErrEncrypted) {
			t.Errorf("Validate() error = %v, want ErrEncrypted", err)
		}
	})

	t.Run("unparseable completeness marker is invalid", func(t *testing.T) {
		dir := testutil.NewBackup(t, t.TempDir(), testutil.DefaultIdentifier).
			AddFile("HomeDomain", "Library/Voicemail/1710255022.amr", []byte("a")).
			Build()
		if err := os.WriteFile(filepath.Join(dir, "Status.plist"), []byte("<not a plist"), 0644); err != nil {
			t.Fatalf("writing status marker: %v", err)
		}

		err := newValidator(t).Validate(parseFixture(t, dir))
		if !errors.Is(err, vmx.ErrInvalid) {
			t.Errorf("Validate() error = %v, want ErrInvalid", err)
		}
	})
}

func TestIsIdentifier(t *testing.T) {
	valid := []string{
		testutil.DefaultIdentifier,
		uuidIdentifier,
	}
	for _, name := range valid {
		if !backup.IsIdentifier(name) {
			t.Errorf("IsIdentifier(%q) = false, want true", name)
		}
	}

	invalid := []string{"", "backup", "aaaa", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"}
	for _, name := range invalid {
		if backup.IsIdentifier(name) {
			t.Errorf("IsIdentifier(%q) = true, want false", name)
		}
	}
}
