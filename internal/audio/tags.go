package audio

import (
	"strconv"

	"github.com/richardsimms/SpeasyTTS/internal/models"
)

// Tag is one key/value written into the container's tag block.
type Tag struct {
	Key   string
	Value string
}

// BuildTags maps podcast metadata onto ID3 fields. FFmpeg writes the
// standard keys to their ID3v2 frames and the rest as TXXX frames. Empty
// values are omitted and the order is fixed.
func BuildTags(meta models.PodcastMetadata, product string) []Tag {
	explicit := "no"
	if meta.Explicit {
		explicit = "yes"
	}

	candidates := []Tag{
		{"title", meta.Title},
		{"artist", product},
		{"album", meta.Album},
		{"album_artist", meta.Author},
		{"genre", "Podcast"},
		{"track", positive(meta.Episode)},
		{"comment", meta.Summary},
		{"season", positive(meta.Season)},
		{"episode", positive(meta.Episode)},
		{"episode_type", meta.EpisodeType},
		{"subtitle", meta.Subtitle},
		{"summary", meta.Summary},
		{"author", meta.Author},
		{"category", meta.Category},
		{"explicit", explicit},
	}

	tags := make([]Tag, 0, len(candidates))
	for _, t := range candidates {
		if t.Value != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// metadataArgs renders tags as repeated -metadata flags.
func metadataArgs(tags []Tag) []string {
	args := make([]string, 0, len(tags)*2)
	for _, t := range tags {
		args = append(args, "-metadata", t.Key+"="+t.Value)
	}
	return args
}

func positive(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
