// FILE: peerxlat/src/internal/netaddr/netaddr.go
package netaddr

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
)

// MaxBits is the largest prefix length accepted for the build's address width.
const MaxBits = Width * 8

// ErrSyntax is returned for address literals that are malformed or belong to
// an address family the build does not support.
var ErrSyntax = errors.New("invalid address")

// Addr is a raw network address stored in a 16-byte slot. Only the Width
// bytes starting at Offset are significant.
type Addr [16]byte

// Prefix is a CIDR block: the leading Bits bits of Addr are significant.
type Prefix struct {
	Addr Addr
	Bits int
}

// ParseAddr parses a textual address literal for the build's address family.
func ParseAddr(s string) (Addr, error) {
	var a Addr
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return a, fmt.Errorf("%w %q: %v", ErrSyntax, s, err)
	}
	if ip.Zone() != "" {
		return a, fmt.Errorf("%w %q: zones are not supported", ErrSyntax, s)
	}
	if Width == 4 {
		ip = ip.Unmap()
		if !ip.Is4() {
			return a, fmt.Errorf("%w %q: not an IPv4 address", ErrSyntax, s)
		}
	}
	a = ip.As16()
	return a, nil
}

// MustParseAddr is like ParseAddr but panics on error. Intended for tests
// and static tables.
func MustParseAddr(s string) Addr {
	a, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromSlice copies a Width-byte raw address into a slot.
func FromSlice(b []byte) (Addr, bool) {
	var a Addr
	if len(b) != Width {
		return a, false
	}
	if Width == 4 {
		a[10], a[11] = 0xff, 0xff
	}
	copy(a[Offset:], b)
	return a, true
}

// Bytes returns the significant Width bytes of the slot. The result aliases a.
func (a *Addr) Bytes() []byte {
	return a[Offset:]
}

// String formats the address the way it would be written in a rules file.
func (a Addr) String() string {
	ip := netip.AddrFrom16(a)
	if Width == 4 {
		ip = ip.Unmap()
	}
	return ip.String()
}

func (p Prefix) String() string {
	return p.Addr.String() + "/" + strconv.Itoa(p.Bits)
}

// Valid reports whether the prefix length is within [0, MaxBits].
func (p Prefix) Valid() bool {
	return p.Bits >= 0 && p.Bits <= MaxBits
}
