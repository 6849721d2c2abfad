package audio

import (
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/richardsimms/SpeasyTTS/internal/models"
)

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType  string            `json:"codec_type"`
	CodecName  string            `json:"codec_name"`
	SampleRate string            `json:"sample_rate"`
	Channels   int               `json:"channels"`
	BitRate    string            `json:"bit_rate"`
	Tags       map[string]string `json:"tags"`
}

type probeFormat struct {
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	BitRate    string            `json:"bit_rate"`
	Tags       map[string]string `json:"tags"`
}

// ProbeResult is what the inspection tool reported about a file.
type ProbeResult struct {
	Artifact       models.AudioArtifact
	HasAudioStream bool
}

// Probe inspects path with ffprobe. Bitrate is taken from the container
// level bit_rate, falling back to the audio stream's.
func (s *Service) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	stdout, stderr, err := s.runner.Run(ctx, s.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, NewProbeError(path, strings.TrimSpace(string(stderr)), err)
	}

	var out probeOutput
	if err := json.Unmarshal(stdout, &out); err != nil {
		return nil, NewProbeError(path, "", err)
	}
	return parseProbe(path, &out), nil
}

func parseProbe(path string, out *probeOutput) *ProbeResult {
	res := &ProbeResult{Artifact: models.AudioArtifact{
		Path:            path,
		Format:          models.NormalizeFormat(filepath.Ext(path)),
		DurationSeconds: parseFloat(out.Format.Duration),
		SizeBytes:       int64(parseFloat(out.Format.Size)),
	}}

	bitRate := parseFloat(out.Format.BitRate)
	for _, st := range out.Streams {
		if st.CodecType != "audio" {
			continue
		}
		res.HasAudioStream = true
		res.Artifact.Codec = st.CodecName
		res.Artifact.SampleRate = int(parseFloat(st.SampleRate))
		res.Artifact.Channels = st.Channels
		if bitRate == 0 {
			bitRate = parseFloat(st.BitRate)
		}
		break
	}
	res.Artifact.BitrateKbps = int(math.Round(bitRate / 1000))

	tags := make(map[string]string, len(out.Format.Tags))
	for k, v := range out.Format.Tags {
		tags[strings.ToLower(k)] = v
	}
	if len(tags) > 0 {
		res.Artifact.Tags = tags
		res.Artifact.HasTags = true
	}
	return res
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
