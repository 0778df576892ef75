package export

import (
	"context"
	"fmt"

	"vmx-go/internal/config"
	"vmx-go/internal/vmx"
)

// NewDestinationFromConfig creates a Destination based on the export
// config type, wrapped with encryption when the config asks for it.
func NewDestinationFromConfig(ctx context.Context, cfg config.ExportConfig, enc config.EncryptionConfig) (vmx.Destination, error) {
	dest, err := newBareDestination(ctx, cfg)
	if err != nil {
		return nil, err
	}

	switch enc.Type {
	case "", "none":
		return dest, nil
	case "age":
		return NewEncryptingDestination(dest, enc.RecipientPath)
	default:
		return nil, fmt.Errorf("unknown encryption type: %s", enc.Type)
	}
}

func newBareDestination(ctx context.Context, cfg config.ExportConfig) (vmx.Destination, error) {
	switch cfg.Type {
	case "filesystem":
		if cfg.OutputDir == "" {
			return nil, fmt.Errorf("filesystem export requires output_dir to be set")
		}
		return NewFileSystemDestination(cfg.OutputDir)
	case "s3":
		return NewS3Destination(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	case "memory":
		return NewMemoryDestination(), nil
	default:
		return nil, fmt.Errorf("unknown export type: %s", cfg.Type)
	}
}
