// Package version reports the build of tia.
package version

import "runtime"

// Set at build time:
// go build -ldflags "-X tia/internal/version.Version=1.0.0 -X tia/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// BuildInfo is the machine-readable build description.
type BuildInfo struct {
	Version   string `json:"version" yaml:"version" toml:"version"`
	Commit    string `json:"commit" yaml:"commit" toml:"commit"`
	BuildDate string `json:"buildDate" yaml:"buildDate" toml:"buildDate"`
	GoVersion string `json:"goVersion" yaml:"goVersion" toml:"goVersion"`
}

// Current returns the build of the running binary.
func Current() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// Info returns the version with a short commit when one is known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}
