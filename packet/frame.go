package packet

import "io"

// FrameReader is a cursor over the bytes of a single packet. It never reads
// past the end of buf, so a decode can not consume the next packet's bytes.
type FrameReader struct {
	buf []byte
	off int
}

func NewFrameReader(buf []byte) FrameReader {
	return FrameReader{
		buf: buf,
		off: 0,
	}
}

func (r FrameReader) Remaining() int {
	return len(r.buf) - r.off
}

// Offset reports how many bytes have been consumed so far.
func (r FrameReader) Offset() int {
	return r.off
}

// Rest returns the unread bytes without consuming them.
func (r FrameReader) Rest() []byte {
	return r.buf[r.off:]
}

func (r *FrameReader) ReadByte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

// Next consumes n bytes and returns them. The returned slice aliases the
// underlying buffer.
func (r *FrameReader) Next(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeLength
	}
	if n > len(r.buf)-r.off {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}
