package version

import "runtime"

// These variables are set at build time via -ldflags
var (
	// Version represents the application version (from git tags)
	Version = "dev"
	// CommitID is the git commit hash
	CommitID = "unknown"
)

// ClientInfo returns structured version information
func ClientInfo() map[string]string {
	return map[string]string{
		"Version":   Version,
		"GoVersion": runtime.Version(),
		"GitCommit": CommitID,
		"OS":        runtime.GOOS,
		"Arch":      runtime.GOARCH,
	}
}
