// Package version exposes build-time version information.
// The variables are overridden at build time via -ldflags.
package version

//nolint:gochecknoglobals // These are build-time variables set via -ldflags.
var (
	// Version is the application version in semantic versioning format.
	Version = "1.0.0"

	// Commit is the git commit hash the binary was built from.
	Commit = "none"

	// BuildTime is the timestamp of when the binary was built.
	BuildTime = "unknown"
)

// Short returns the application version only.
func Short() string {
	return Version
}

// Full returns the version, commit hash, and build timestamp in a single line.
func Full() string {
	return "version: " + Version + ", commit: " + Commit + ", built at: " + BuildTime
}
