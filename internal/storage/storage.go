// Package storage persists finished podcast artifacts. Artifacts are small
// enough to move as byte slices, so the interface deals in whole objects.
package storage

import (
	"context"
	"fmt"

	"github.com/richardsimms/SpeasyTTS/internal/config"
)

// ContentTypeMP3 is recorded on stored MP3 objects.
const ContentTypeMP3 = "audio/mpeg"

// ArtifactStore stores artifacts under forward-slash separated keys.
// Implementations must be safe for concurrent use.
type ArtifactStore interface {
	// Put stores data under key, replacing any existing object, and returns
	// a location string suitable for logs and status records.
	Put(ctx context.Context, key string, data []byte) (string, error)

	// Get returns the object stored under key. A missing key yields an
	// error wrapping os.ErrNotExist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// New builds the store selected by cfg. Local storage is rooted at outputDir.
func New(ctx context.Context, cfg config.StorageConfig, outputDir string) (ArtifactStore, error) {
	switch cfg.Driver {
	case config.StorageS3:
		return NewS3FromConfig(ctx, cfg)
	case config.StorageLocal, "":
		return NewLocal(outputDir)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
