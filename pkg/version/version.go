// Package version carries build metadata stamped at link time.
package version

// Populated via -ldflags at build time; defaults identify a local build.
var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the git commit the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)
