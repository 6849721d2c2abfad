package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richardsimms/SpeasyTTS/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	// Skip config loading so version works with a broken environment.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"product":    version.Product,
				"version":    version.Version,
				"commit":     version.Commit,
				"build_time": version.BuildTime,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
		return nil
	},
}
