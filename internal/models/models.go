// Package models contains the data models for the text-to-audio pipeline.
package models

import (
	"fmt"
	"time"
)

// TextChunk is one bounded-length slice of source text destined for a single
// synthesis call. Index is 1-based and follows source order.
type TextChunk struct {
	Index  int
	Text   string
	Length int // characters (runes), not bytes
}

// AudioSegment is the synthesized audio for one chunk.
type AudioSegment struct {
	Index int
	Data  []byte
}

// EpisodeType values understood by podcast clients.
const (
	EpisodeTypeFull    = "full"
	EpisodeTypeTrailer = "trailer"
	EpisodeTypeBonus   = "bonus"
)

// PodcastMetadata is embedded into the artifact's tag block. It is supplied
// once per run and never modified by the pipeline.
type PodcastMetadata struct {
	Title       string `json:"title" yaml:"title"`
	Episode     int    `json:"episode" yaml:"episode"`
	Season      int    `json:"season,omitempty" yaml:"season"`
	EpisodeType string `json:"episode_type,omitempty" yaml:"episode_type"`
	Subtitle    string `json:"subtitle,omitempty" yaml:"subtitle"`
	Summary     string `json:"summary,omitempty" yaml:"summary"`
	Author      string `json:"author,omitempty" yaml:"author"`
	Album       string `json:"album,omitempty" yaml:"album"`
	Category    string `json:"category,omitempty" yaml:"category"`
	Explicit    bool   `json:"explicit" yaml:"explicit"`
}

// WithDefaults fills empty optional fields. The receiver is not modified.
func (m PodcastMetadata) WithDefaults(product string) PodcastMetadata {
	if m.EpisodeType == "" {
		m.EpisodeType = EpisodeTypeFull
	}
	if m.Author == "" {
		m.Author = product
	}
	if m.Album == "" {
		m.Album = product + " Podcast"
	}
	return m
}

// AudioArtifact describes an encoded audio file and the facts derived from it.
// A repaired file is a new artifact; artifacts are never changed in place.
type AudioArtifact struct {
	Path            string            `json:"path"`
	Format          string            `json:"format"`
	Codec           string            `json:"codec,omitempty"`
	BitrateKbps     int               `json:"bitrate_kbps"`
	SampleRate      int               `json:"sample_rate"`
	Channels        int               `json:"channels"`
	DurationSeconds float64           `json:"duration_seconds"`
	SizeBytes       int64             `json:"size_bytes"`
	HasTags         bool              `json:"has_tags"`
	Tags            map[string]string `json:"tags,omitempty"`
}

// Duration returns the artifact's playing time.
func (a AudioArtifact) Duration() time.Duration {
	return time.Duration(a.DurationSeconds * float64(time.Second))
}

// IssueCode identifies a validation finding so that the repairer can act on
// it without parsing messages.
type IssueCode string

const (
	IssueFileTooLarge          IssueCode = "file_too_large"
	IssueFileUnreadable        IssueCode = "file_unreadable"
	IssueFormatNotAllowed      IssueCode = "format_not_allowed"
	IssueProbeFailed           IssueCode = "probe_failed"
	IssueNoAudioStream         IssueCode = "no_audio_stream"
	IssueBitrateTooLow         IssueCode = "bitrate_too_low"
	IssueBitrateTooHigh        IssueCode = "bitrate_too_high"
	IssueSampleRateUnsupported IssueCode = "sample_rate_unsupported"
	IssueMissingTags           IssueCode = "missing_tags"
)

// Severity separates blocking problems from advice.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding.
type Issue struct {
	Code     IssueCode `json:"code"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

// ValidationReport is the verdict of one validator run. Reports are built
// once and then only read.
type ValidationReport struct {
	Valid    bool          `json:"is_valid"`
	Errors   []string      `json:"errors"`
	Warnings []string      `json:"warnings"`
	Issues   []Issue       `json:"issues"`
	Metadata AudioArtifact `json:"metadata"`
}

// NewValidationReport assembles a report from ordered findings.
func NewValidationReport(metadata AudioArtifact, issues []Issue) *ValidationReport {
	r := &ValidationReport{
		Errors:   []string{},
		Warnings: []string{},
		Issues:   issues,
		Metadata: metadata,
	}
	for _, is := range issues {
		switch is.Severity {
		case SeverityError:
			r.Errors = append(r.Errors, is.Message)
		case SeverityWarning:
			r.Warnings = append(r.Warnings, is.Message)
		}
	}
	r.Valid = len(r.Errors) == 0
	return r
}

// Has reports whether the report contains a finding with the given code.
func (r *ValidationReport) Has(code IssueCode) bool {
	for _, is := range r.Issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

// String returns a short human-readable verdict.
func (r *ValidationReport) String() string {
	verdict := "valid"
	if !r.Valid {
		verdict = "invalid"
	}
	return fmt.Sprintf("%s (%d errors, %d warnings)", verdict, len(r.Errors), len(r.Warnings))
}
