// Package version exposes build metadata injected at link time.
package version

import "fmt"

// Set via -ldflags "-X github.com/glyscope/glyscope/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the bare version string.
func Short() string {
	return Version
}

// Info returns the full human-readable version line.
func Info() string {
	return fmt.Sprintf("glyscope %s (commit %s, built %s)", Version, Commit, Date)
}
