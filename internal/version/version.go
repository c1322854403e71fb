// Package version provides version information for the bb CLI.
package version

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Build-time variables set via ldflags.
var (
	// Version is the CLI version (set via ldflags).
	Version = "v0.0.0-dev"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// Info contains version information.
type Info struct {
	// Version is the CLI version (set via ldflags).
	Version string `json:"version"`

	// GitCommit is the git commit hash.
	GitCommit string `json:"gitCommit"`

	// BuildDate is the build timestamp.
	BuildDate string `json:"buildDate"`

	// GoVersion is the Go version used to build.
	GoVersion string `json:"goVersion"`
}

// EngineInfo describes the provisioning engine binary on this machine.
type EngineInfo struct {
	// Path is the resolved binary path.
	Path string `json:"path"`

	// Found indicates whether the binary is on PATH.
	Found bool `json:"found"`
}

// GetInfo returns the current version information.
func GetInfo() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// DetectEngine looks up the provisioning engine binary.
func DetectEngine(binary string) EngineInfo {
	path, err := exec.LookPath(binary)
	if err != nil {
		return EngineInfo{Found: false}
	}
	return EngineInfo{Path: path, Found: true}
}

// String returns a human-readable version string.
func (i Info) String() string {
	return fmt.Sprintf("bb:\n  Version:  %s\n  Build ID: %s/%s\n  Go:       %s",
		i.Version, i.BuildDate, i.GitCommit, i.GoVersion)
}

// FullVersionString renders version and engine information together.
func FullVersionString(info Info, engine EngineInfo) string {
	s := info.String()
	if engine.Found {
		s += fmt.Sprintf("\n\nEngine:\n  Path: %s", engine.Path)
	} else {
		s += "\n\nEngine:\n  not found on PATH"
	}
	return s
}
