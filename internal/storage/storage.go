// Package storage keeps post images on local disk or in S3.
package storage

import (
	"context"
	"fmt"

	"yatube/internal/config"
)

// ObjectStore writes immutable objects and resolves their public URLs.
type ObjectStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	URL(key string) string
}

// New builds the store selected by MEDIA_BACKEND.
func New(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch cfg.MediaBackend {
	case "local", "":
		return NewLocalStore(cfg.MediaRoot, cfg.MediaURL), nil
	case "s3":
		return NewS3Store(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3BaseURL)
	default:
		return nil, fmt.Errorf("unsupported media backend %q", cfg.MediaBackend)
	}
}
