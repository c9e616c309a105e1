package mchub

import (
	"bufio"
	"io"
	"sync"

	"github.com/gstoney/mchub/packet"
)

// DefaultMaxPacketLen is the largest frame a 3-byte VarInt length prefix can
// announce.
const DefaultMaxPacketLen = 1<<21 - 1

// Frames up to this size reuse the receive buffer; larger ones get their own
// allocation so a single big packet does not pin memory for the life of the
// connection.
const recvBufKeep = 64 << 10

type TransportConfig struct {
	// MaxPacketLen bounds the announced length of an incoming frame. The
	// length prefix is chosen by the peer, so this is also the bound on
	// per-packet memory. Zero means DefaultMaxPacketLen.
	MaxPacketLen int32
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

type flusher interface {
	Flush() error
}

// Transport reads and writes length-prefixed frames on a byte stream.
// Transport does not deserialize packets.
type Transport struct {
	reader byteReader
	writer io.Writer

	rbuf []byte

	wmu  sync.Mutex
	wbuf []byte

	cfg TransportConfig
}

// NewTransport creates a Transport.
//
// Reading a length prefix takes one call per byte, so a reader that performs
// syscalls (e.g. net.Conn) must be buffered. Indicate buffered input by
// implementing io.ByteReader; other readers are wrapped with bufio.
//
// Each frame is handed to w in a single Write. If w has a Flush method it is
// called after every frame.
func NewTransport(r io.Reader, w io.Writer, cfg TransportConfig) *Transport {
	var br byteReader

	if b, ok := r.(byteReader); ok {
		br = b
	} else if r != nil {
		br = bufio.NewReader(r)
	}

	if cfg.MaxPacketLen <= 0 {
		cfg.MaxPacketLen = DefaultMaxPacketLen
	}

	return &Transport{
		reader: br,
		writer: w,
		cfg:    cfg,
	}
}

// Recv reads the next frame body (packet ID and payload). The returned slice
// is only valid until the next call to Recv.
//
// io.EOF is returned only when the stream ends cleanly between frames. A
// stream that ends inside a frame yields io.ErrUnexpectedEOF.
func (t *Transport) Recv() ([]byte, error) {
	length, err := packet.ReadVarInt(t.reader)
	if err != nil {
		return nil, err
	}

	if length <= 0 {
		return nil, ErrInvalidFrameLength
	}
	if length > t.cfg.MaxPacketLen {
		return nil, ErrPacketTooBig
	}

	var b []byte
	if int(length) <= cap(t.rbuf) {
		b = t.rbuf[:length]
	} else if length <= recvBufKeep {
		t.rbuf = make([]byte, recvBufKeep)
		b = t.rbuf[:length]
	} else {
		b = make([]byte, length)
	}

	if _, err := io.ReadFull(t.reader, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return b, nil
}

// RecvFrame reads the next frame and splits off its packet ID.
func (t *Transport) RecvFrame() (Frame, error) {
	b, err := t.Recv()
	if err != nil {
		return Frame{}, err
	}
	return ParseFrame(b)
}

// Send writes one packet. It is safe for concurrent use; frames from
// different goroutines never interleave.
func (t *Transport) Send(id int32, payload []byte) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()

	t.wbuf = AppendFrame(t.wbuf[:0], id, payload)
	if _, err := t.writer.Write(t.wbuf); err != nil {
		return err
	}

	if f, ok := t.writer.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// WritePacket encodes p and sends it under p's ID.
func (t *Transport) WritePacket(p packet.Packet) error {
	var b packet.Buffer
	if err := p.MarshalWire(&b); err != nil {
		return err
	}
	return t.Send(p.ID(), b.Bytes())
}
