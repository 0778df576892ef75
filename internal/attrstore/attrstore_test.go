package attrstore_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vmx-go/internal/attrstore"
	"vmx-go/internal/testutil"
	"vmx-go/internal/vmx"
)

func writeDB(t *testing.T, rows []testutil.Voicemail) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voicemail.db")
	if err := os.WriteFile(path, testutil.VoicemailDB(t, rows), 0644); err != nil {
		t.Fatalf("writing attribute db: %v", err)
	}
	return path
}

func readAll(t *testing.T, path string, includeDeleted bool) []*vmx.AttributeRecord {
	t.Helper()
	store, err := attrstore.Opener{}.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	records, err := store.ReadAll(includeDeleted)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return records
}

func TestOpener_IsWellFormed(t *testing.T) {
	t.Run("true for a real attribute database", func(t *testing.T) {
		path := writeDB(t, []testutil.Voicemail{{Date: 1710255022}})
		if !(attrstore.Opener{}).IsWellFormed(path) {
			t.Error("IsWellFormed() = false, want true")
		}
	})

	t.Run("false for garbage bytes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "voicemail.db")
		if err := os.WriteFile(path, []byte("this is not a database"), 0644); err != nil {
			t.Fatalf("writing garbage: %v", err)
		}
		if (attrstore.Opener{}).IsWellFormed(path) {
			t.Error("IsWellFormed() = true for garbage, want false")
		}
	})

	t.Run("false for a database missing the voicemail table", func(t *testing.T) {
		// A catalog fixture is a valid SQLite file with the wrong schema.
		dir := testutil.NewBackup(t, t.TempDir(), testutil.DefaultIdentifier).
			AddFile("HomeDomain", "Library/Notes/notes.sqlite", []byte("x")).
			Build()
		if (attrstore.Opener{}).IsWellFormed(filepath.Join(dir, "Manifest.db")) {
			t.Error("IsWellFormed() = true for wrong schema, want false")
		}
	})
}

func TestStore_ReadAll(t *testing.T) {
	t.Run("decodes all fields", func(t *testing.T) {
		path := writeDB(t, []testutil.Voicemail{{
			RemoteUID:  42,
			Date:       1710255022,
			Sender:     "+12345678900",
			Callback:   "+12345678901",
			Duration:   31,
			Expiration: 1712847022,
			Flags:      vmx.FlagRead,
		}})

		records := readAll(t, path, false)
		if len(records) != 1 {
			t.Fatalf("len(records) = %d, want 1", len(records))
		}
		rec := records[0]
		if rec.RemoteUID != 42 {
			t.Errorf("RemoteUID = %d, want 42", rec.RemoteUID)
		}
		if want := time.Unix(1710255022, 0).UTC(); !rec.Received.Equal(want) {
			t.Errorf("Received = %v, want %v", rec.Received, want)
		}
		if rec.Sender != "+12345678900" {
			t.Errorf("Sender = %q", rec.Sender)
		}
		if rec.CallbackNum != "+12345678901" {
			t.Errorf("CallbackNum = %q", rec.CallbackNum)
		}
		if rec.Duration != 31 {
			t.Errorf("Duration = %d, want 31", rec.Duration)
		}
		if rec.Expiration == nil || !rec.Expiration.Equal(time.Unix(1712847022, 0).UTC()) {
			t.Errorf("Expiration = %v", rec.Expiration)
		}
		if rec.Trashed != nil {
			t.Errorf("Trashed = %v, want nil", rec.Trashed)
		}
		if !rec.Read() {
			t.Error("Read() = false, want true")
		}
		if rec.Spam() {
			t.Error("Spam() = true, want false")
		}
	})

	t.Run("zero timestamps mean absent, not epoch zero", func(t *testing.T) {
		path := writeDB(t, []testutil.Voicemail{{Date: 1710255022, Expiration: 0, Trashed: 0}})

		rec := readAll(t, path, false)[0]
		if rec.Expiration != nil {
			t.Errorf("Expiration = %v, want nil for 0 sentinel", rec.Expiration)
		}
		if rec.Trashed != nil {
			t.Errorf("Trashed = %v, want nil for 0 sentinel", rec.Trashed)
		}
	})

	t.Run("orders by received time descending", func(t *testing.T) {
		path := writeDB(t, []testutil.Voicemail{
			{Date: 1710255022, Sender: "older"},
			{Date: 1710341422, Sender: "newer"},
		})

		records := readAll(t, path, false)
		if len(records) != 2 {
			t.Fatalf("len(records) = %d, want 2", len(records))
		}
		if records[0].Sender != "newer" || records[1].Sender != "older" {
			t.Errorf("order = [%s, %s], want [newer, older]", records[0].Sender, records[1].Sender)
		}
	})

	t.Run("filters trashed records by default", func(t *testing.T) {
		path := writeDB(t, []testutil.Voicemail{
			{Date: 1710255022, Sender: "kept"},
			{Date: 1710341422, Sender: "trashed", Trashed: 1710350000},
		})

		records := readAll(t, path, false)
		if len(records) != 1 {
			t.Fatalf("len(records) = %d, want 1", len(records))
		}
		if records[0].Sender != "kept" {
			t.Errorf("Sender = %q, want kept", records[0].Sender)
		}
	})

	t.Run("includeDeleted keeps trashed records", func(t *testing.T) {
		path := writeDB(t, []testutil.Voicemail{
			{Date: 1710255022, Sender: "kept"},
			{Date: 1710341422, Sender: "trashed", Trashed: 1710350000},
		})

		records := readAll(t, path, true)
		if len(records) != 2 {
			t.Fatalf("len(records) = %d, want 2", len(records))
		}
		if records[0].Trashed == nil {
			t.Error("newest record should carry its trashed timestamp")
		}
	})

	t.Run("spam flag decodes", func(t *testing.T) {
		path := writeDB(t, []testutil.Voicemail{{Date: 1710255022, Flags: vmx.FlagSpam}})

		rec := readAll(t, path, false)[0]
		if !rec.Spam() {
			t.Error("Spam() = false, want true")
		}
		if rec.Read() {
			t.Error("Read() = true, want false")
		}
	})
}
