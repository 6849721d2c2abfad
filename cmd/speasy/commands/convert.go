package commands

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/richardsimms/SpeasyTTS/internal/models"
	"github.com/richardsimms/SpeasyTTS/internal/pipeline"
	"github.com/richardsimms/SpeasyTTS/internal/utils"
	"github.com/richardsimms/SpeasyTTS/internal/validation"
	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

var (
	convertInput    string
	convertOutput   string
	convertMetaFile string
	convertMeta     models.PodcastMetadata
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a text file into a podcast episode",
	Long: `Convert a text file into a single tagged MP3 episode.

The run is synchronous. The final validation report is printed; when the
episode still fails validation after repair it is written anyway and the
command exits with status 2.

Metadata comes from flags or from a YAML/JSON file (--metadata); flags
override file values.

Examples:
  speasy convert -i notes.txt -o out/pilot.mp3 --title "Pilot" --episode 1
  cat notes.txt | speasy convert -i - --metadata episode.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		meta := models.PodcastMetadata{}
		if convertMetaFile != "" {
			if err := loadMetadata(convertMetaFile, &meta); err != nil {
				return err
			}
		}
		applyMetadataFlags(cmd, &meta)

		text, err := readInput(convertInput)
		if err != nil {
			return err
		}
		req := models.ConversionRequest{Text: string(text), Metadata: meta}
		if err := validation.ValidateConversionRequest(req).ToError(); err != nil {
			return err
		}

		p, err := buildPipeline(appConfig)
		if err != nil {
			return err
		}
		res, err := p.Run(cmd.Context(), pipeline.Request{
			Text:         req.Text,
			Metadata:     meta,
			Requirements: appConfig.Requirements,
		})
		if err != nil {
			return err
		}

		out := convertOutput
		if out == "" {
			out = utils.GetOutputPath(appConfig, res.SessionID)
		}
		if err := saveToFile(out, res.Audio); err != nil {
			return err
		}
		logger.Info("Wrote %s (%d chunks, repaired: %t, %s)", out, res.Chunks, res.Repaired, res.Elapsed.Round(time.Millisecond))

		if res.Repaired && res.InitialReport != nil && !outputJSON {
			printReport(cmd.OutOrStdout(), "before repair", res.InitialReport)
		}
		printReport(cmd.OutOrStdout(), out, res.Report)
		if !res.Valid() {
			return &ExitError{Code: 2}
		}
		return nil
	},
}

// applyMetadataFlags copies explicitly set flags over file values.
func applyMetadataFlags(cmd *cobra.Command, meta *models.PodcastMetadata) {
	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	set("title", func() { meta.Title = strings.TrimSpace(convertMeta.Title) })
	set("episode", func() { meta.Episode = convertMeta.Episode })
	set("season", func() { meta.Season = convertMeta.Season })
	set("episode-type", func() { meta.EpisodeType = convertMeta.EpisodeType })
	set("subtitle", func() { meta.Subtitle = convertMeta.Subtitle })
	set("summary", func() { meta.Summary = convertMeta.Summary })
	set("author", func() { meta.Author = convertMeta.Author })
	set("album", func() { meta.Album = convertMeta.Album })
	set("category", func() { meta.Category = convertMeta.Category })
	set("explicit", func() { meta.Explicit = convertMeta.Explicit })
}

func init() {
	f := convertCmd.Flags()
	f.StringVarP(&convertInput, "input", "i", "", "text file to convert (- for stdin)")
	f.StringVarP(&convertOutput, "output", "o", "", "episode file (default: <output_path>/episode_<run>.mp3)")
	f.StringVar(&convertMetaFile, "metadata", "", "YAML or JSON metadata file")

	f.StringVar(&convertMeta.Title, "title", "", "episode title")
	f.IntVar(&convertMeta.Episode, "episode", 0, "episode number")
	f.IntVar(&convertMeta.Season, "season", 0, "season number")
	f.StringVar(&convertMeta.EpisodeType, "episode-type", "", "full, trailer or bonus")
	f.StringVar(&convertMeta.Subtitle, "subtitle", "", "episode subtitle")
	f.StringVar(&convertMeta.Summary, "summary", "", "episode summary")
	f.StringVar(&convertMeta.Author, "author", "", "author (default: product name)")
	f.StringVar(&convertMeta.Album, "album", "", "show name")
	f.StringVar(&convertMeta.Category, "category", "", "podcast category")
	f.BoolVar(&convertMeta.Explicit, "explicit", false, "mark the episode explicit")

	_ = convertCmd.MarkFlagRequired("input")
}
