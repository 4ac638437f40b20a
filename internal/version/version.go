// Package version carries build information injected with -ldflags, e.g.
//
//	go build -ldflags "-X edspec/internal/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the relay version compared against published releases.
	Version = "1.0.0"

	GitCommit = "unknown"
	BuildTime = "unknown"
)

func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildTime)
}

func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s", Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
