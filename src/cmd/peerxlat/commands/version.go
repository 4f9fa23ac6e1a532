// FILE: peerxlat/src/cmd/peerxlat/commands/version.go
package commands

import (
	"fmt"

	"peerxlat/src/internal/version"
)

// VersionCommand prints build information.
type VersionCommand struct{}

func NewVersionCommand() *VersionCommand {
	return &VersionCommand{}
}

func (c *VersionCommand) Execute(args []string) error {
	fmt.Println(version.String())
	return nil
}

func (c *VersionCommand) Description() string {
	return "Show version information"
}

func (c *VersionCommand) Help() string {
	return `Version Command - Show peerxlat version information

Usage:
  peerxlat version
  peerxlat -v
  peerxlat --version

Output includes the version tag, the address family the binary was built
for (ipv4, or ipv6 with -tags ipv6), the git commit and the build time.
`
}
