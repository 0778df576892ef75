package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("VMX_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("VMX_HOME", "/custom/vmx")
		t.Setenv("VMX_BACKUP_ROOT", "/custom/backups")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/custom/config.toml" {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], "/custom/config.toml")
		}
		if defaults["base_dir"] != "/custom/vmx" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/custom/vmx")
		}
		if defaults["backup_root"] != "/custom/backups" {
			t.Errorf("backup_root = %q, want %q", defaults["backup_root"], "/custom/backups")
		}
		if defaults["log_dir"] != "/custom/vmx/log" {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], "/custom/vmx/log")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("VMX_CONFIG_PATH", "")
		t.Setenv("VMX_HOME", "")
		t.Setenv("VMX_BACKUP_ROOT", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "vmx.toml")
		if defaults["config_path"] != wantConfig {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "vmx")
		if defaults["base_dir"] != wantBase {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], wantBase)
		}

		wantLog := filepath.Join(wantBase, "log")
		if defaults["log_dir"] != wantLog {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], wantLog)
		}
	})
}
