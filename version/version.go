// Package version holds build-time version information.
// These variables are set via -ldflags at build time.
package version

var (
	// GitRelease is the release tag or version string.
	GitRelease = "dev"

	// GitCommit is the git commit hash the binary was built from.
	GitCommit = ""

	// BuildTime is the UTC timestamp of the build.
	BuildTime = ""
)
