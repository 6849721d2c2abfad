package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check an audio file against the distribution requirements",
	Long: `Inspect an audio file and report every requirement it violates.

Requirements come from the requirements section of the configuration.
Exits with status 1 when the file is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report := newAudioService(appConfig).Validate(cmd.Context(), args[0], appConfig.Requirements)
		printReport(cmd.OutOrStdout(), args[0], report)
		if !report.Valid {
			return &ExitError{Code: 1}
		}
		return nil
	},
}

var repairOutput string

var repairCmd = &cobra.Command{
	Use:   "repair FILE",
	Short: "Re-encode a non-compliant audio file",
	Long: `Validate an audio file, re-encode it in a single pass to fix bitrate
and sample rate problems, and validate the result.

The input is never modified. Without --output the repaired copy is written
next to the input with a _repaired suffix. Size and format problems cannot
be repaired; the command then exits with status 1.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc := newAudioService(appConfig)
		input := args[0]

		report := svc.Validate(ctx, input, appConfig.Requirements)
		printReport(cmd.OutOrStdout(), input, report)
		if report.Valid {
			return nil
		}

		repaired, err := svc.Repair(ctx, input, report, appConfig.Requirements)
		if err != nil {
			return err
		}
		if repaired == input {
			return &ExitError{Code: 1, Message: "nothing repairable: " + report.String()}
		}

		final := repaired
		if repairOutput != "" && repairOutput != repaired {
			if err := os.Rename(repaired, repairOutput); err != nil {
				return err
			}
			final = repairOutput
		}

		after := svc.Validate(ctx, final, appConfig.Requirements)
		printReport(cmd.OutOrStdout(), final, after)
		if !after.Valid {
			return &ExitError{Code: 1}
		}
		return nil
	},
}

func init() {
	repairCmd.Flags().StringVarP(&repairOutput, "output", "o", "", "repaired file (default: <input>_repaired.<ext>)")
}
