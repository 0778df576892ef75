package app

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - VMX_CONFIG_PATH: config file location (default: ~/.config/vmx.toml)
//   - VMX_HOME: base directory for vmx data (default: ~/.local/share/vmx)
//   - VMX_BACKUP_ROOT: backup root (default: the platform's device backup location)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	backupRoot, err := getBackupRoot()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"backup_root": backupRoot,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking VMX_CONFIG_PATH env var first,
// then falling back to the default ~/.config/vmx.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("VMX_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "vmx.toml"), nil
}

// getBaseDir returns the base directory for vmx data, checking VMX_HOME env var first,
// then falling back to the XDG default ~/.local/share/vmx.
func getBaseDir() (string, error) {
	if path := os.Getenv("VMX_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "vmx"), nil
}

// getBackupRoot returns where device backups live on this platform,
// checking VMX_BACKUP_ROOT env var first.
func getBackupRoot() (string, error) {
	if path := os.Getenv("VMX_BACKUP_ROOT"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(homeDir, "Library", "Application Support", "MobileSync", "Backup"), nil
	}
	return filepath.Join(homeDir, "Backup"), nil
}
