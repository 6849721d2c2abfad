package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/richardsimms/SpeasyTTS/internal/models"
	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

// Validate checks the file at path against reqs. Every check contributes
// its own findings and none stops the others, so one report lists every
// problem. Inspection failures become report errors; Validate never fails.
func (s *Service) Validate(ctx context.Context, path string, reqs models.AudioRequirements) *models.ValidationReport {
	reqs = reqs.WithDefaults()
	var issues []models.Issue
	add := func(code models.IssueCode, sev models.Severity, format string, args ...any) {
		issues = append(issues, models.Issue{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	meta := models.AudioArtifact{
		Path:   path,
		Format: models.NormalizeFormat(filepath.Ext(path)),
	}

	// File size
	if info, err := os.Stat(path); err != nil {
		add(models.IssueFileUnreadable, models.SeverityError, "cannot read file: %v", err)
	} else {
		meta.SizeBytes = info.Size()
		if meta.SizeBytes > reqs.MaxFileSizeBytes {
			add(models.IssueFileTooLarge, models.SeverityError,
				"file size %s exceeds maximum %s", formatBytes(meta.SizeBytes), formatBytes(reqs.MaxFileSizeBytes))
		}
	}

	// Container/extension
	if !reqs.AllowsFormat(meta.Format) {
		add(models.IssueFormatNotAllowed, models.SeverityError,
			"format %q is not allowed (allowed: %v)", meta.Format, reqs.AllowedFormats)
	}

	// Stream probe
	probed, err := s.Probe(ctx, path)
	if err != nil {
		var audioErr *AudioError
		if errors.As(err, &audioErr) && audioErr.Stderr != "" {
			logger.Debug("ffprobe stderr for %s: %s", path, audioErr.Stderr)
		}
		add(models.IssueProbeFailed, models.SeverityError, "could not inspect audio: %v", unwrapProbe(err))
	} else {
		size := meta.SizeBytes
		meta = probed.Artifact
		if size > 0 {
			meta.SizeBytes = size
		}
		if !probed.HasAudioStream {
			add(models.IssueNoAudioStream, models.SeverityError, "file contains no audio stream")
		}
	}

	if probed != nil && probed.HasAudioStream {
		// Bitrate range
		if meta.BitrateKbps > 0 {
			switch {
			case meta.BitrateKbps < reqs.MinBitrate:
				add(models.IssueBitrateTooLow, models.SeverityError,
					"bitrate %d kbps is below minimum %d kbps", meta.BitrateKbps, reqs.MinBitrate)
			case meta.BitrateKbps > reqs.MaxBitrate:
				add(models.IssueBitrateTooHigh, models.SeverityError,
					"bitrate %d kbps exceeds maximum %d kbps", meta.BitrateKbps, reqs.MaxBitrate)
			}
		}

		// Sample rate
		if !reqs.AllowsSampleRate(meta.SampleRate) {
			add(models.IssueSampleRateUnsupported, models.SeverityError,
				"sample rate %d Hz is not supported (allowed: %v)", meta.SampleRate, reqs.AllowedSampleRates)
		}

		// Tags
		if meta.Format == FormatMP3 && !meta.HasTags {
			add(models.IssueMissingTags, models.SeverityWarning, "no ID3 tags found, podcast clients may show no title")
		}
	}

	return models.NewValidationReport(meta, issues)
}

func unwrapProbe(err error) error {
	var audioErr *AudioError
	if errors.As(err, &audioErr) && audioErr.Underlying != nil {
		return audioErr.Underlying
	}
	return err
}

func formatBytes(n int64) string {
	const mb = 1024 * 1024
	if n >= mb {
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
