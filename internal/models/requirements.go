package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Default distribution limits.
const (
	DefaultMaxFileSizeBytes int64 = 200 * 1024 * 1024
	DefaultMinBitrate             = 64
	DefaultMaxBitrate             = 320
)

// AudioRequirements are the distribution constraints an artifact is checked
// against. Bitrates are in kbps and inclusive; sample rates in Hz.
type AudioRequirements struct {
	MaxFileSizeBytes   int64    `json:"max_file_size_bytes" yaml:"max_file_size_bytes"`
	MinBitrate         int      `json:"min_bitrate" yaml:"min_bitrate"`
	MaxBitrate         int      `json:"max_bitrate" yaml:"max_bitrate"`
	AllowedSampleRates []int    `json:"allowed_sample_rates" yaml:"allowed_sample_rates"`
	AllowedFormats     []string `json:"allowed_formats" yaml:"allowed_formats"`
}

// DefaultAudioRequirements returns the limits podcast directories accept.
func DefaultAudioRequirements() AudioRequirements {
	return AudioRequirements{
		MaxFileSizeBytes:   DefaultMaxFileSizeBytes,
		MinBitrate:         DefaultMinBitrate,
		MaxBitrate:         DefaultMaxBitrate,
		AllowedSampleRates: []int{44100, 48000},
		AllowedFormats:     []string{"mp3", "m4a", "aac"},
	}
}

// WithDefaults returns a copy where every zero-valued option takes its default.
func (r AudioRequirements) WithDefaults() AudioRequirements {
	d := DefaultAudioRequirements()
	if r.MaxFileSizeBytes <= 0 {
		r.MaxFileSizeBytes = d.MaxFileSizeBytes
	}
	if r.MinBitrate <= 0 {
		r.MinBitrate = d.MinBitrate
	}
	if r.MaxBitrate <= 0 {
		r.MaxBitrate = d.MaxBitrate
	}
	if len(r.AllowedSampleRates) == 0 {
		r.AllowedSampleRates = d.AllowedSampleRates
	} else {
		r.AllowedSampleRates = slices.Clone(r.AllowedSampleRates)
	}
	if len(r.AllowedFormats) == 0 {
		r.AllowedFormats = d.AllowedFormats
	} else {
		formats := make([]string, 0, len(r.AllowedFormats))
		for _, f := range r.AllowedFormats {
			formats = append(formats, NormalizeFormat(f))
		}
		r.AllowedFormats = formats
	}
	return r
}

// Validate checks the requirements are internally consistent.
func (r AudioRequirements) Validate() error {
	if r.MinBitrate > r.MaxBitrate {
		return fmt.Errorf("min bitrate %d exceeds max bitrate %d", r.MinBitrate, r.MaxBitrate)
	}
	for _, sr := range r.AllowedSampleRates {
		if sr <= 0 {
			return errors.New("allowed sample rates must be positive")
		}
	}
	return nil
}

// AllowsFormat reports whether the container/extension is whitelisted.
func (r AudioRequirements) AllowsFormat(format string) bool {
	return slices.Contains(r.AllowedFormats, NormalizeFormat(format))
}

// AllowsSampleRate reports whether the rate is an exact whitelist match.
func (r AudioRequirements) AllowsSampleRate(rate int) bool {
	return slices.Contains(r.AllowedSampleRates, rate)
}

// NormalizeFormat lowercases a format and strips a leading dot.
func NormalizeFormat(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}
