// FILE: peerxlat/src/internal/netaddr/width_v6.go
//go:build ipv6

package netaddr

// IPv6-capable build: the full 16-byte slot is significant. IPv4 literals
// are stored IPv4-mapped.
const (
	Width  = 16
	Offset = 0
	Family = "ipv6"
)
