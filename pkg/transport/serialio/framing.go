package serialio

// Link framing for protocol frames over a UART: the BLE characteristic
// boundary does not exist on a serial line, so frames are delimited
// explicitly.
//
//	[0xAA 0x55] [len u8] [payload ...] [xor u8]
//
// xor covers the length byte and the payload. Anything that fails the
// check is discarded byte-by-byte until the next header candidate.

const (
	header1 = 0xAA
	header2 = 0x55
	// maxFrame bounds payload length; protocol frames are tiny.
	maxFrame = 32
)

func checksum(p []byte) byte {
	var x byte
	for _, b := range p {
		x ^= b
	}
	return x
}

// encodeFrame wraps a protocol frame for the wire.
func encodeFrame(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+4)
	out = append(out, header1, header2, byte(len(payload)))
	out = append(out, payload...)
	out = append(out, checksum(out[2:]))
	return out
}

// scanner is a resynchronizing frame parser fed one byte at a time.
type scanner struct {
	buf []byte
}

// feed consumes one byte and returns a complete payload when one is
// assembled.
func (s *scanner) feed(b byte) ([]byte, bool) {
	s.buf = append(s.buf, b)

	for {
		// Discard until a plausible header starts the buffer.
		start := 0
		for start < len(s.buf) && s.buf[start] != header1 {
			start++
		}
		s.buf = s.buf[start:]

		if len(s.buf) < 2 {
			return nil, false
		}
		if s.buf[1] != header2 {
			s.buf = s.buf[1:]
			continue
		}
		if len(s.buf) < 3 {
			return nil, false
		}
		n := int(s.buf[2])
		if n > maxFrame {
			s.buf = s.buf[1:]
			continue
		}
		total := 3 + n + 1
		if len(s.buf) < total {
			return nil, false
		}
		if checksum(s.buf[2:3+n]) != s.buf[total-1] {
			s.buf = s.buf[1:]
			continue
		}
		payload := make([]byte, n)
		copy(payload, s.buf[3:3+n])
		s.buf = s.buf[total:]
		return payload, true
	}
}
