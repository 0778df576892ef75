package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vmx-go/internal/config"
	"vmx-go/internal/testutil"
	"vmx-go/internal/vmx"
)

// newTestApp wires a VMXApp over a fixture backup root with in-memory
// history and filesystem export into the returned output dir.
func newTestApp(t *testing.T, backupRoot string) (*VMXApp, string) {
	t.Helper()
	baseDir := t.TempDir()
	cfg := config.NewConfig(backupRoot, baseDir)
	cfg.History = config.DatabaseConfig{Type: "memory"}

	a, err := NewVMXApp(cfg)
	if err != nil {
		t.Fatalf("NewVMXApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, cfg.Export.OutputDir
}

func TestVMXApp_Extract(t *testing.T) {
	t.Run("end to end run exports and records history", func(t *testing.T) {
		root := t.TempDir()
		testutil.NewBackup(t, root, testutil.DefaultIdentifier).
			AddFile("HomeDomain", "Library/Voicemail/1710255022.amr", []byte("audio")).
			AddVoicemail(testutil.Voicemail{Date: 1710255022, Sender: "+12345678900", Duration: 31}).
			Build()
		a, outputDir := newTestApp(t, root)

		result, err := a.Extract(context.Background(), ExtractOptions{})
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if len(result.Payloads) != 1 || result.Payloads[0].Record == nil {
			t.Fatalf("unexpected result: %d payloads", len(result.Payloads))
		}

		// Exported audio plus sidecar, chronologically named.
		audioPath := filepath.Join(outputDir, "20240312T145022Z_+12345678900.amr")
		if _, err := os.Stat(audioPath); err != nil {
			t.Errorf("exported audio missing: %v", err)
		}
		if _, err := os.Stat(filepath.Join(outputDir, "20240312T145022Z_+12345678900.json")); err != nil {
			t.Errorf("exported sidecar missing: %v", err)
		}

		// Work directory cleaned up after a successful export.
		if _, err := os.Stat(result.WorkDir); !os.IsNotExist(err) {
			t.Errorf("work directory should be removed after export, stat err = %v", err)
		}

		runs, err := a.History(10)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("len(runs) = %d, want 1", len(runs))
		}
		if runs[0].Status != "success" || runs[0].Extracted != 1 || runs[0].Matched != 1 {
			t.Errorf("run = %+v, want success with 1/1", runs[0])
		}
		if runs[0].BackupIdentifier != testutil.DefaultIdentifier {
			t.Errorf("BackupIdentifier = %q", runs[0].BackupIdentifier)
		}
	})

	t.Run("skipping export keeps the work directory", func(t *testing.T) {
		root := t.TempDir()
		testutil.NewBackup(t, root, testutil.DefaultIdentifier).
			AddFile("HomeDomain", "Library/Voicemail/1710255022.amr", []byte("audio")).
			Build()
		a, outputDir := newTestApp(t, root)

		result, err := a.Extract(context.Background(), ExtractOptions{SkipExport: true})
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if len(result.Payloads) != 1 {
			t.Fatalf("len(Payloads) = %d, want 1", len(result.Payloads))
		}
		if _, err := os.Stat(result.Payloads[0].Path); err != nil {
			t.Errorf("work directory should hold the payload: %v", err)
		}
		if filepath.Dir(result.Payloads[0].Path) != result.WorkDir {
			t.Errorf("payload path %q not under work dir %q", result.Payloads[0].Path, result.WorkDir)
		}
		if entries, _ := os.ReadDir(outputDir); len(entries) != 0 {
			t.Errorf("output dir should be empty, found %d entries", len(entries))
		}
	})

	t.Run("selection failure records an errored run", func(t *testing.T) {
		a, _ := newTestApp(t, t.TempDir())

		_, err := a.Extract(context.Background(), ExtractOptions{})
		if !errors.Is(err, vmx.ErrNotFound) {
			t.Fatalf("Extract() error = %v, want ErrNotFound", err)
		}

		runs, err := a.History(10)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(runs) != 1 || runs[0].Status != "error" {
			t.Errorf("runs = %+v, want one errored run", runs)
		}
	})
}

func TestVMXApp_ListBackups(t *testing.T) {
	root := t.TempDir()
	testutil.NewBackup(t, root, testutil.DefaultIdentifier).Build()
	a, _ := newTestApp(t, root)

	backups, err := a.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(backups) != 1 || backups[0].Identifier != testutil.DefaultIdentifier {
		t.Errorf("backups = %+v", backups)
	}
}
