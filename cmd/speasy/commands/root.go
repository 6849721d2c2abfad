// Package commands implements the speasy command tree.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/richardsimms/SpeasyTTS/internal/config"
	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool

	// Loaded by the root command before any subcommand runs.
	appConfig *config.Config
)

// ExitError ends the process with Code after printing Message, if any.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

var rootCmd = &cobra.Command{
	Use:   "speasy",
	Short: "Turn long-form text into a distribution-ready podcast episode",
	Long: `speasy converts text into a single tagged MP3 episode.

Text is split into chunks the speech provider accepts, each chunk is
synthesized in order, the audio is joined and tagged with podcast metadata,
and the result is validated against directory requirements and repaired
when possible.

Configuration comes from defaults, an optional YAML file (--config) and
SPEASY_* environment variables.

Examples:
  # Convert a text file
  speasy convert -i episode.txt -o episode.mp3 --title "Pilot" --episode 1

  # Check an existing file
  speasy validate episode.mp3

  # Run the background service
  speasy worker`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if verbose {
			level = string(logger.LevelDebug)
		}
		// Logs go to stderr so reports on stdout stay machine readable.
		if err := logger.InitializeWithWriters(level, !cfg.Environment.IsProduction(), os.Stderr, os.Stderr); err != nil {
			return err
		}
		appConfig = cfg
		return nil
	},
}

// Command returns the root command.
func Command() *cobra.Command {
	return rootCmd
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(versionCmd)
}
