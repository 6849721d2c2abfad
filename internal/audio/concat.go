package audio

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/models"
	"github.com/richardsimms/SpeasyTTS/internal/scratch"
	"github.com/richardsimms/SpeasyTTS/internal/utils"
	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

// ArtifactName is the scratch name of a run's joined output.
const ArtifactName = "episode.mp3"

// Concatenate joins segments in index order into one tagged MP3 inside the
// session's scratch area. A single segment is written out unchanged without
// invoking FFmpeg. Chunk files and the concat list are removed before
// returning on every path.
func (s *Service) Concatenate(ctx context.Context, session *scratch.Session, segments []models.AudioSegment, meta models.PodcastMetadata) (models.AudioArtifact, error) {
	if len(segments) == 0 {
		return models.AudioArtifact{}, apperrors.Concatenation(apperrors.ReasonNone, "no audio segments to join")
	}

	outputPath := session.Path(ArtifactName)

	if len(segments) == 1 {
		if err := os.WriteFile(outputPath, segments[0].Data, 0o600); err != nil {
			return models.AudioArtifact{}, apperrors.Concatenation(apperrors.ReasonScratchIO, "failed to write artifact").Wrap(err)
		}
		return models.AudioArtifact{
			Path:      outputPath,
			Format:    FormatMP3,
			SizeBytes: int64(len(segments[0].Data)),
		}, nil
	}

	ordered := slices.Clone(segments)
	slices.SortStableFunc(ordered, func(a, b models.AudioSegment) int { return cmp.Compare(a.Index, b.Index) })

	var temp []string
	defer func() {
		for _, p := range temp {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				logger.Warn("Failed to remove scratch file %s: %v", p, err)
			}
		}
	}()

	var list strings.Builder
	for _, seg := range ordered {
		p, err := session.WriteFile(utils.ChunkFilename(seg.Index), seg.Data)
		temp = append(temp, p)
		if err != nil {
			return models.AudioArtifact{}, apperrors.Concatenation(apperrors.ReasonScratchIO, "failed to write chunk audio").
				Wrap(err).WithIndex(seg.Index)
		}
		fmt.Fprintf(&list, "file '%s'\n", escapeConcatPath(p))
	}

	listPath, err := session.WriteFile("concat.txt", []byte(list.String()))
	temp = append(temp, listPath)
	if err != nil {
		return models.AudioArtifact{}, apperrors.Concatenation(apperrors.ReasonScratchIO, "failed to write concat list").Wrap(err)
	}

	tags := BuildTags(meta, s.product)
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-map", "0:a",
		"-c", "copy",
		"-id3v2_version", "3",
		"-write_id3v1", "1",
	}
	args = append(args, metadataArgs(tags)...)
	args = append(args, outputPath)

	if stderr, err := s.ffmpeg(ctx, args...); err != nil {
		return models.AudioArtifact{}, apperrors.Concatenation(apperrors.ReasonProcessFailed, "ffmpeg failed to join audio").
			Wrap(NewConcatError(outputPath, stderr, err)).WithInternal("stderr: %s", stderr)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return models.AudioArtifact{}, apperrors.Concatenation(apperrors.ReasonProcessFailed, "ffmpeg produced no output").Wrap(err)
	}

	tagMap := make(map[string]string, len(tags))
	for _, t := range tags {
		tagMap[t.Key] = t.Value
	}
	return models.AudioArtifact{
		Path:      outputPath,
		Format:    FormatMP3,
		SizeBytes: info.Size(),
		HasTags:   len(tagMap) > 0,
		Tags:      tagMap,
	}, nil
}

// escapeConcatPath quotes a path for the concat demuxer's single-quoted syntax.
func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
