package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/database"
	"github.com/richardsimms/SpeasyTTS/internal/models"
	"github.com/richardsimms/SpeasyTTS/internal/repository"
	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

var (
	statusFilter string
	statusLimit  int
)

var statusCmd = &cobra.Command{
	Use:   "status [ID]",
	Short: "Show conversion records",
	Long: `Show one conversion record, or list recent ones when no ID is given.

Examples:
  speasy status 3f2b9c1e-...
  speasy status --status failed --limit 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(appConfig.Database)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close database connection: %v", err)
			}
		}()
		repo := repository.NewConversionRepository(db)
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			conv, err := repo.GetByID(cmd.Context(), args[0])
			if err != nil {
				return apperrors.TranslateRepoError("get conversion", err)
			}
			if outputJSON {
				return printJSON(out, conv)
			}
			printConversion(cmd, conv)
			return nil
		}

		status := models.ConversionStatus(statusFilter)
		if status != "" && !status.IsValid() {
			return fmt.Errorf("unknown status %q", statusFilter)
		}
		list, err := repo.List(cmd.Context(), repository.ListFilter{Status: status, Limit: statusLimit})
		if err != nil {
			return apperrors.TranslateRepoError("list conversions", err)
		}
		if outputJSON {
			return printJSON(out, list)
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tTITLE\tEPISODE\tCHUNKS\tUPDATED")
		for _, c := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
				c.ID, c.Status, c.Title, c.Episode, c.Chunks, c.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

func printConversion(cmd *cobra.Command, c *models.Conversion) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:       %s\n", c.ID)
	fmt.Fprintf(out, "Title:    %s (episode %d)\n", c.Title, c.Episode)
	fmt.Fprintf(out, "Status:   %s\n", c.Status)
	fmt.Fprintf(out, "Chunks:   %d\n", c.Chunks)
	if c.ArtifactKey != nil {
		fmt.Fprintf(out, "Artifact: %s\n", *c.ArtifactKey)
	}
	if c.DurationSeconds != nil {
		fmt.Fprintf(out, "Duration: %s\n", formatDuration(*c.DurationSeconds))
	}
	if c.SizeBytes != nil {
		fmt.Fprintf(out, "Size:     %s\n", formatBytes(*c.SizeBytes))
	}
	if c.Repaired {
		fmt.Fprintln(out, "Repaired: yes")
	}
	if c.ErrorKind != nil {
		msg := ""
		if c.ErrorMessage != nil {
			msg = *c.ErrorMessage
		}
		fmt.Fprintf(out, "Error:    %s: %s\n", *c.ErrorKind, msg)
	}
	fmt.Fprintf(out, "Created:  %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"))
	if c.CompletedAt != nil {
		fmt.Fprintf(out, "Finished: %s\n", c.CompletedAt.Format("2006-01-02 15:04:05"))
	}
}

func init() {
	statusCmd.Flags().StringVar(&statusFilter, "status", "", "filter by status (pending, processing, completed, invalid, failed)")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "maximum records to list")
}
