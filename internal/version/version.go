// Package version holds the essaylab build metadata stamped via ldflags.
package version

//nolint:revive // Set via ldflags at build time.
var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
