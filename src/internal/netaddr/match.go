// FILE: peerxlat/src/internal/netaddr/match.go
package netaddr

// Match reports whether the Width-byte address addr lies inside p.
// addr must hold at least Width bytes. Runs on every translated peer, so it
// stays allocation free.
func Match(addr []byte, p *Prefix) bool {
	bits := p.Bits
	for i := 0; i < Width; i++ {
		if bits <= 0 {
			return true
		}
		m := byte(0xff)
		if bits < 8 {
			m = ^byte(0xff >> uint(bits))
		}
		if (addr[i]^p.Addr[i+Offset])&m != 0 {
			return false
		}
		bits -= 8
	}
	return true
}

// Contains is Match for a slot address.
func (p *Prefix) Contains(a *Addr) bool {
	return Match(a.Bytes(), p)
}
