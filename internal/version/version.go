// Package version carries the build metadata stamped into the bake binary.
package version

import (
	"fmt"
	"runtime"
)

// Overridden at build time, e.g.
//
//	-ldflags "-X github.com/example/bake/internal/version.Version=v0.3.0"
var (
	Version      = "dev"
	GitCommit    = "unknown"
	GitTreeState = "unknown" // clean|dirty|unknown
	BuildDate    = "unknown" // RFC3339 UTC
)

type Info struct {
	Version      string `json:"version"`
	GitCommit    string `json:"gitCommit"`
	GitTreeState string `json:"gitTreeState"`
	BuildDate    string `json:"buildDate"`
	GoVersion    string `json:"goVersion"`
	Platform     string `json:"platform"`
}

func Get() Info {
	return Info{
		Version:      Version,
		GitCommit:    GitCommit,
		GitTreeState: GitTreeState,
		BuildDate:    BuildDate,
		GoVersion:    runtime.Version(),
		Platform:     fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
