// Package utils provides shared naming helpers for scratch files and stored artifacts.
package utils

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/richardsimms/SpeasyTTS/internal/config"
)

// ScratchFilename returns the name of a per-run scratch file. Every file of
// a run starts with its session token.
func ScratchFilename(token, name string) string {
	return fmt.Sprintf("%s_%s", token, name)
}

// ChunkFilename returns the scratch name for the audio of a 1-based chunk.
func ChunkFilename(index int) string {
	return fmt.Sprintf("chunk_%04d.mp3", index)
}

// RepairedPath returns the path of the re-encoded copy of an artifact.
func RepairedPath(artifactPath string) string {
	ext := filepath.Ext(artifactPath)
	return strings.TrimSuffix(artifactPath, ext) + "_repaired" + ext
}

// GetArtifactFilename returns the standardized filename for a conversion's audio.
func GetArtifactFilename(conversionID string) string {
	return fmt.Sprintf("episode_%s.mp3", conversionID)
}

// ArtifactKey returns the storage key for a conversion's audio. Keys are
// grouped by creation month and always use forward slashes.
func ArtifactKey(prefix, conversionID string, createdAt time.Time) string {
	return path.Join(prefix, createdAt.UTC().Format("2006/01"), GetArtifactFilename(conversionID))
}

// GetOutputPath returns the local output path for a CLI conversion.
func GetOutputPath(cfg *config.Config, conversionID string) string {
	return filepath.Join(cfg.Audio.OutputPath, GetArtifactFilename(conversionID))
}
