package h4

import (
	"time"
)

// H4 packet indicators.
const (
	commandPacket = 0x01
	aclPacket     = 0x02
	scoPacket     = 0x03
	eventPacket   = 0x04
	isoPacket     = 0x05
)

const frameTimeout = 500 * time.Millisecond

// frame reassembles H4 packets from a byte stream. Bytes before a known
// packet indicator are dropped, and a partial packet older than
// frameTimeout is discarded.
type frame struct {
	b       []byte
	timeout time.Time
	emit    func([]byte)
	now     func() time.Time
}

func newFrame(emit func([]byte)) *frame {
	fr := &frame{
		emit: emit,
		now:  time.Now,
	}
	fr.reset()
	return fr
}

// Assemble consumes b, emitting every packet it completes.
func (f *frame) Assemble(b []byte) {
	if len(b) == 0 {
		return
	}

	if len(f.b) != 0 && f.now().After(f.timeout) {
		//timed out
		f.reset()
	}

	for len(b) > 0 {
		need, ok := 0, false
		if len(f.b) != 0 {
			need, ok = f.length()
		}

		switch {
		case len(f.b) == 0:
			b = f.waitStart(b)
			if len(f.b) == 0 {
				return
			}

		case !ok:
			// header incomplete, take one byte at a time until it is
			f.b = append(f.b, b[0])
			b = b[1:]

		default:
			take := need - len(f.b)
			if take > len(b) {
				take = len(b)
			}
			f.b = append(f.b, b[:take]...)
			b = b[take:]
		}

		f.flush()
	}
}

// flush emits the packet in progress if it is complete.
func (f *frame) flush() {
	if len(f.b) == 0 {
		return
	}
	need, ok := f.length()
	if !ok || len(f.b) != need {
		return
	}

	out := make([]byte, need)
	copy(out, f.b)
	f.reset()
	f.emit(out)
}

func (f *frame) reset() {
	f.b = make([]byte, 0, 256)
	f.timeout = time.Time{}
}

// waitStart drops bytes up to the first packet indicator and starts a
// packet there. It returns the unconsumed remainder.
func (f *frame) waitStart(b []byte) []byte {
	for i, v := range b {
		if _, ok := headerLength(v); ok {
			f.b = append(f.b, v)
			f.timeout = f.now().Add(frameTimeout)
			return b[i+1:]
		}
	}
	return nil
}

// headerLength is the header size, indicator included, for packet type t.
func headerLength(t byte) (int, bool) {
	switch t {
	case commandPacket, scoPacket:
		return 4, true
	case eventPacket:
		return 3, true
	case aclPacket, isoPacket:
		return 5, true
	default:
		return 0, false
	}
}

// length returns the full size of the packet in progress once its header
// is complete.
func (f *frame) length() (int, bool) {
	hl, _ := headerLength(f.b[0])
	if len(f.b) < hl {
		return 0, false
	}

	switch f.b[0] {
	case eventPacket:
		return hl + int(f.b[2]), true
	case commandPacket, scoPacket:
		return hl + int(f.b[3]), true
	case aclPacket:
		return hl + (int(f.b[3]) | int(f.b[4])<<8), true
	case isoPacket:
		return hl + (int(f.b[3]) | int(f.b[4]&0x3f)<<8), true
	}
	return 0, false
}
