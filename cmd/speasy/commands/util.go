package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/richardsimms/SpeasyTTS/internal/audio"
	"github.com/richardsimms/SpeasyTTS/internal/config"
	"github.com/richardsimms/SpeasyTTS/internal/models"
	"github.com/richardsimms/SpeasyTTS/internal/pipeline"
	"github.com/richardsimms/SpeasyTTS/internal/tts"
	"github.com/richardsimms/SpeasyTTS/pkg/version"
)

// buildPipeline wires the configured speech provider and FFmpeg tooling.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	provider, err := tts.NewProvider(&cfg.TTS)
	if err != nil {
		return nil, err
	}
	synth := tts.NewSynthesizer(provider, cfg.TTS.Voice, cfg.TTS.HardLimit)
	return pipeline.New(pipeline.OptionsFromConfig(cfg), synth, newAudioService(cfg))
}

func newAudioService(cfg *config.Config) *audio.Service {
	return audio.NewService(&cfg.Audio, audio.WithProduct(version.Product))
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path) // #nosec G304 - user-supplied input path
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// loadMetadata reads podcast metadata from a YAML or JSON file.
func loadMetadata(path string, meta *models.PodcastMetadata) error {
	data, err := readInput(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, meta); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, meta); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	}
	return nil
}

// saveToFile writes data, creating parent directories.
func saveToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		// #nosec G301 - output directories are user-chosen
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	// #nosec G306 - episodes are meant to be published
	return os.WriteFile(path, data, 0644)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printReport writes a report in the selected output format.
func printReport(w io.Writer, label string, r *models.ValidationReport) {
	if outputJSON {
		_ = printJSON(w, r)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", label, r)
	m := r.Metadata
	if m.Format != "" {
		fmt.Fprintf(w, "  format %s, %d kbps, %d Hz, %d ch, %s, %s\n",
			m.Format, m.BitrateKbps, m.SampleRate, m.Channels,
			formatDuration(m.DurationSeconds), formatBytes(m.SizeBytes))
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  error:   %s\n", e)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
}

func formatDuration(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm%ds", int(seconds/60), int(seconds)%60)
	}
	return fmt.Sprintf("%dh%dm", int(seconds/3600), int(seconds)%3600/60)
}

func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/1024/1024)
	case n >= 1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
