// Package version exposes build metadata shared by the daemon and CLI.
package version

import "fmt"

// Set via ldflags during build:
//
//	-X github.com/inkweldlabs/repoprint/internal/version.Version=v1.2.3
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// String returns a single-line version description.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
