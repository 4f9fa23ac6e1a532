// FILE: peerxlat/src/internal/version/version.go
package version

import (
	"fmt"

	"peerxlat/src/internal/netaddr"
)

var (
	// Version is set at compile time via -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String returns the full version line including the address family the
// binary was built for.
func String() string {
	return fmt.Sprintf("%s (%s, commit: %s, built: %s)", Short(), netaddr.Family, GitCommit, BuildTime)
}

// Short returns just the version tag
func Short() string {
	return Version
}
