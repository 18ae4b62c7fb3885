// Package storage abstracts the blob store the moderation pipeline and
// upload handlers rely on: existence checks by relative path and public
// URL resolution for handing references to third-party services.
package storage

import (
	"context"
	"fmt"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/config"
)

// Storage is the blob storage collaborator.
type Storage interface {
	// Exists reports whether a storage-relative path refers to an object.
	Exists(ctx context.Context, path string) (bool, error)
	// PublicURL resolves a storage-relative path to an absolute URL.
	PublicURL(path string) string
}

// New builds the storage backend selected by config.
func New(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "s3":
		return newS3Storage(cfg)
	case "local", "":
		return newLocalStorage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
