// FILE: peerxlat/src/internal/lookup/codec.go
package lookup

import "peerxlat/src/internal/netaddr"

// FrameSize is the length of one request: requester then peer, each Width bytes.
const FrameSize = 2 * netaddr.Width

// Translator rewrites a peer address in place for the given requester.
type Translator interface {
	Translate(peer, requester []byte) bool
}

// processFrames answers every complete frame in buf. The returned slice holds
// one Width-byte response per frame; consumed is the number of request bytes
// used, leaving any trailing partial frame for the next read. allow is asked
// before each frame and stops processing when it returns false.
func processFrames(buf []byte, tr Translator, allow func() bool) (out []byte, consumed, rewritten int, denied bool) {
	frames := len(buf) / FrameSize
	if frames == 0 {
		return nil, 0, 0, false
	}

	out = make([]byte, 0, frames*netaddr.Width)
	for i := 0; i < frames; i++ {
		if allow != nil && !allow() {
			return out, consumed, rewritten, true
		}

		frame := buf[i*FrameSize : (i+1)*FrameSize]
		requester := frame[:netaddr.Width]

		start := len(out)
		out = append(out, frame[netaddr.Width:]...)
		if tr.Translate(out[start:], requester) {
			rewritten++
		}
		consumed += FrameSize
	}
	return out, consumed, rewritten, false
}
