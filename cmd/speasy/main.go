// Package main is the entry point for the speasy command.
//
// Usage:
//
//	speasy [flags] <command> [args]
//
// Commands:
//
//	convert  - Convert a text file into a tagged podcast episode
//	validate - Check an audio file against the distribution requirements
//	repair   - Re-encode a non-compliant audio file
//	status   - Show conversion records
//	worker   - Run the background conversion service
//	version  - Print build information
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/richardsimms/SpeasyTTS/cmd/speasy/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		var exitErr *commands.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
