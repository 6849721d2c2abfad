// Package version provides version information for the application.
package version

import "fmt"

// Product is the name written into the artist tag of every generated episode.
const Product = "SpeasyTTS"

// Build information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns a one-line build description.
func String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", Product, Version, Commit, BuildTime)
}
