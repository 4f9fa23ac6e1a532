// FILE: peerxlat/src/internal/netaddr/width_v4.go
//go:build !ipv6

package netaddr

// IPv4-only build: addresses are 4 bytes wide and live in the low 4 bytes
// of the 16-byte slot.
const (
	Width  = 4
	Offset = 12
	Family = "ipv4"
)
