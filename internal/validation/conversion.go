package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/richardsimms/SpeasyTTS/internal/models"
)

// Request limits.
const (
	MaxTitleLength = 255
	MaxTextLength  = 500_000
)

// ValidateConversionRequest checks a submitted request before any record is
// created.
func ValidateConversionRequest(req models.ConversionRequest) *Result {
	r := New()

	switch {
	case strings.TrimSpace(req.Text) == "":
		r.AddError("text", "text is required")
	case utf8.RuneCountInString(req.Text) > MaxTextLength:
		r.AddErrorf("text", "text exceeds %d characters", MaxTextLength)
	}

	r.Merge(ValidateMetadata(req.Metadata))

	if req.Requirements != nil {
		if err := req.Requirements.WithDefaults().Validate(); err != nil {
			r.AddError("requirements", err.Error())
		}
	}
	return r
}

// ValidateMetadata checks the podcast tag fields.
func ValidateMetadata(m models.PodcastMetadata) *Result {
	r := New()

	title := strings.TrimSpace(m.Title)
	switch {
	case title == "":
		r.AddError("metadata.title", "title is required")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		r.AddErrorf("metadata.title", "title exceeds %d characters", MaxTitleLength)
	}
	if m.Episode < 0 {
		r.AddError("metadata.episode", "episode must not be negative")
	}
	if m.Season < 0 {
		r.AddError("metadata.season", "season must not be negative")
	}
	switch m.EpisodeType {
	case "", models.EpisodeTypeFull, models.EpisodeTypeTrailer, models.EpisodeTypeBonus:
	default:
		r.AddErrorf("metadata.episode_type", "episode type must be full, trailer or bonus, got %q", m.EpisodeType)
	}
	return r
}
