package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for vmx.
type Config struct {
	BackupRoot       string           `toml:"backup_root"`
	WorkDir          string           `toml:"work_dir"`
	LogDir           string           `toml:"log_dir"`
	ToleranceSeconds int              `toml:"tolerance_seconds"` // reconciliation window; 0 means the default
	IncludeDeleted   bool             `toml:"include_deleted"`
	Parallelism      int              `toml:"parallelism"` // extraction worker pool size
	History          DatabaseConfig   `toml:"history"`
	Export           ExportConfig     `toml:"export"`
	Encryption       EncryptionConfig `toml:"encryption"`
}

// DatabaseConfig represents configuration for the run-history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ExportConfig represents configuration for the export destination.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ExportConfig struct {
	Type string `toml:"type"` // "filesystem", "s3", or "memory"

	// Filesystem-specific fields (only used when Type == "filesystem")
	OutputDir string `toml:"output_dir,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`   // custom endpoint for MinIO-style deployments
	S3AccessKey string `toml:"s3_access_key,omitempty"` // empty means the ambient credential chain
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
}

// EncryptionConfig controls at-rest encryption of exported voicemails.
type EncryptionConfig struct {
	Type          string `toml:"type"` // "none" (default) or "age"
	RecipientPath string `toml:"recipient_path,omitempty"`
}

// NewConfig creates a new Config with the provided values and default layout.
func NewConfig(backupRoot, baseDir string) *Config {
	return &Config{
		BackupRoot: backupRoot,
		WorkDir:    filepath.Join(baseDir, "work"),
		LogDir:     filepath.Join(baseDir, "log"),
		History: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Export: ExportConfig{
			Type:      "filesystem",
			OutputDir: filepath.Join(baseDir, "out"),
		},
		Encryption: EncryptionConfig{Type: "none"},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
