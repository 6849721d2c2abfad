package audio

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/models"
	"github.com/richardsimms/SpeasyTTS/internal/utils"
	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

// RepairPlan is the set of fixes a single re-encode applies.
type RepairPlan struct {
	BitrateKbps int // 0 keeps the measured bitrate
	SampleRate  int // 0 keeps the measured rate
}

// Empty reports whether there is nothing to fix.
func (p RepairPlan) Empty() bool {
	return p.BitrateKbps == 0 && p.SampleRate == 0
}

// PlanRepair derives fixes from a report. Only bitrate and sample rate
// findings are fixable; size and format findings are not.
func (s *Service) PlanRepair(report *models.ValidationReport, reqs models.AudioRequirements) RepairPlan {
	reqs = reqs.WithDefaults()
	var plan RepairPlan
	if report.Has(models.IssueBitrateTooLow) || report.Has(models.IssueBitrateTooHigh) {
		plan.BitrateKbps = min(max(s.repairBitrate, reqs.MinBitrate), reqs.MaxBitrate)
	}
	if report.Has(models.IssueSampleRateUnsupported) {
		plan.SampleRate = reqs.AllowedSampleRates[0]
	}
	return plan
}

// Repair re-encodes the artifact once, applying every fixable finding of
// report in the same pass. The repaired file is written next to the input
// as <stem>_repaired<ext>. When nothing is fixable, or the report is valid,
// the input path is returned unchanged and no process runs.
func (s *Service) Repair(ctx context.Context, artifactPath string, report *models.ValidationReport, reqs models.AudioRequirements) (string, error) {
	if report == nil || report.Valid {
		return artifactPath, nil
	}
	plan := s.PlanRepair(report, reqs)
	if plan.Empty() {
		logger.Info("No automatic fix for %s: %v", filepath.Base(artifactPath), report.Errors)
		return artifactPath, nil
	}

	bitrate := plan.BitrateKbps
	if bitrate == 0 {
		bitrate = report.Metadata.BitrateKbps
	}
	if bitrate <= 0 {
		bitrate = s.repairBitrate
	}

	outputPath := utils.RepairedPath(artifactPath)
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-i", artifactPath,
		"-map", "0:a",
		"-map_metadata", "0",
		"-c:a", string(CodecForFormat(filepath.Ext(artifactPath))),
		"-b:a", strconv.Itoa(bitrate) + "k",
	}
	if plan.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(plan.SampleRate))
	}
	args = append(args, "-id3v2_version", "3", outputPath)

	logger.Info("Repairing %s (bitrate %d kbps, sample rate %d Hz)", filepath.Base(artifactPath), bitrate, plan.SampleRate)
	if stderr, err := s.ffmpeg(ctx, args...); err != nil {
		return "", apperrors.Repair(apperrors.ReasonProcessFailed, "ffmpeg failed to re-encode audio").
			Wrap(NewRepairError(artifactPath, stderr, err)).WithInternal("stderr: %s", stderr)
	}
	return outputPath, nil
}
