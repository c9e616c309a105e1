package mchub

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/gstoney/mchub/packet"
)

func defaultConfig() TransportConfig {
	return TransportConfig{
		MaxPacketLen: 1 << 20, // 1MB
	}
}

// TestTransport_Roundtrip verifies that a packet can be sent and received
// with identical ID and payload.
func TestTransport_Roundtrip(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransport(&buf, &buf, defaultConfig())

	payload := []byte("hello minecraft")
	if err := tr.Send(0x42, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	f, err := tr.RecvFrame()
	if err != nil {
		t.Fatalf("RecvFrame: %v", err)
	}

	if f.ID != 0x42 {
		t.Errorf("id: got 0x%02x, want 0x42", f.ID)
	}
	if !bytes.Equal(f.Payload, payload) {
		t.Errorf("got %q, want %q", f.Payload, payload)
	}
}

// TestTransport_WireLayout pins the exact bytes of a frame: total length,
// packet ID, payload.
func TestTransport_WireLayout(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransport(nil, &buf, defaultConfig())

	if err := tr.WritePacket(&packet.PingRespPacket{Payload: 42}); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}

	want := []byte{0x09, 0x01, 0, 0, 0, 0, 0, 0, 0, 0x2a}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got %x, want %x", buf.Bytes(), want)
	}
	if n := FrameSize(0x01, 8); n != len(want) {
		t.Errorf("FrameSize: got %d, want %d", n, len(want))
	}
}

// TestTransport_LargePayload verifies that large payloads (64KB) are
// correctly framed and transmitted without corruption.
func TestTransport_LargePayload(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransport(&buf, &buf, defaultConfig())

	payload := make([]byte, 1<<16) // 64KB
	for i := range payload {
		payload[i] = byte(i)
	}

	if err := tr.Send(0x200, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	f, err := tr.RecvFrame()
	if err != nil {
		t.Fatalf("RecvFrame: %v", err)
	}

	if f.ID != 0x200 {
		t.Errorf("id: got 0x%02x, want 0x200", f.ID)
	}
	if !bytes.Equal(f.Payload, payload) {
		t.Errorf("payload mismatch")
	}
}

// TestTransport_MultiplePackets verifies that multiple packets sent
// sequentially maintain proper frame boundaries and are received in order.
func TestTransport_MultiplePackets(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransport(&buf, &buf, defaultConfig())

	packets := [][]byte{
		[]byte("first"),
		{},
		[]byte("third"),
	}

	for i, p := range packets {
		if err := tr.Send(int32(i), p); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	for i, want := range packets {
		f, err := tr.RecvFrame()
		if err != nil {
			t.Fatalf("RecvFrame[%d]: %v", i, err)
		}

		if f.ID != int32(i) {
			t.Errorf("packet[%d]: id %d", i, f.ID)
		}
		if !bytes.Equal(f.Payload, want) {
			t.Errorf("packet[%d]: got %q, want %q", i, f.Payload, want)
		}
	}

	if _, err := tr.Recv(); err != io.EOF {
		t.Errorf("Recv after last frame: got %v, want io.EOF", err)
	}
}

// TestTransport_ShortReads verifies that a frame trickling in a byte at a
// time is reassembled.
func TestTransport_ShortReads(t *testing.T) {
	var buf bytes.Buffer
	w := NewTransport(nil, &buf, defaultConfig())

	payload := bytes.Repeat([]byte("trickle "), 64)
	if err := w.Send(0x07, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	tr := NewTransport(iotest.OneByteReader(&buf), nil, defaultConfig())
	f, err := tr.RecvFrame()
	if err != nil {
		t.Fatalf("RecvFrame: %v", err)
	}
	if f.ID != 0x07 || !bytes.Equal(f.Payload, payload) {
		t.Errorf("got id 0x%02x payload %q", f.ID, f.Payload)
	}
}

// TestTransport_PacketTooBig verifies that Recv returns ErrPacketTooBig
// when the frame length exceeds MaxPacketLen.
func TestTransport_PacketTooBig(t *testing.T) {
	var buf bytes.Buffer
	cfg := TransportConfig{
		MaxPacketLen: 100,
	}
	tr := NewTransport(&buf, &buf, cfg)

	payload := make([]byte, 200)
	if err := tr.Send(0, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	_, err := tr.Recv()
	if err != ErrPacketTooBig {
		t.Errorf("Recv: got %v, want ErrPacketTooBig", err)
	}
}

// TestTransport_DefaultMaxPacketLen verifies that a zero config still
// bounds the frame size.
func TestTransport_DefaultMaxPacketLen(t *testing.T) {
	var buf bytes.Buffer
	packet.WriteVarInt(&buf, DefaultMaxPacketLen+1)

	tr := NewTransport(&buf, nil, TransportConfig{})
	if _, err := tr.Recv(); err != ErrPacketTooBig {
		t.Errorf("Recv: got %v, want ErrPacketTooBig", err)
	}
}

// TestTransport_InvalidFrameLength verifies that zero and negative length
// prefixes are rejected before any body is read.
func TestTransport_InvalidFrameLength(t *testing.T) {
	for _, length := range []int32{0, -1, -2147483648} {
		var buf bytes.Buffer
		packet.WriteVarInt(&buf, length)
		buf.WriteString("body")

		tr := NewTransport(&buf, nil, defaultConfig())
		if _, err := tr.Recv(); err != ErrInvalidFrameLength {
			t.Errorf("length %d: got %v, want ErrInvalidFrameLength", length, err)
		}
	}
}

// TestTransport_Truncated verifies that a stream ending inside a frame is
// distinguished from a clean end of stream.
func TestTransport_Truncated(t *testing.T) {
	tests := []struct {
		desc string
		in   []byte
		err  error
	}{
		{"Empty stream", []byte{}, io.EOF},
		{"Inside length prefix", []byte{0x80}, io.ErrUnexpectedEOF},
		{"Inside body", []byte{0x0a, 0x00, 0x01, 0x02}, io.ErrUnexpectedEOF},
		{"Length only", []byte{0x05}, io.ErrUnexpectedEOF},
		{"Overlong length prefix", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x01}, packet.ErrVarIntTooLong},
	}

	for _, tC := range tests {
		t.Run(tC.desc, func(t *testing.T) {
			tr := NewTransport(bytes.NewReader(tC.in), nil, defaultConfig())
			if _, err := tr.Recv(); !errors.Is(err, tC.err) {
				t.Errorf("Recv: got %v, want %v", err, tC.err)
			}
		})
	}
}

// TestTransport_BadPacketID verifies that a frame whose body does not start
// with a complete VarInt is reported as truncated.
func TestTransport_BadPacketID(t *testing.T) {
	tr := NewTransport(bytes.NewReader([]byte{0x01, 0x80}), nil, defaultConfig())
	if _, err := tr.RecvFrame(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("RecvFrame: got %v, want %v", err, io.ErrUnexpectedEOF)
	}
}

// TestTransport_Flush verifies that buffered writers are flushed after
// every frame.
func TestTransport_Flush(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	tr := NewTransport(nil, bw, defaultConfig())

	if err := tr.Send(0x00, []byte("x")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if buf.Len() != 3 {
		t.Errorf("got %d bytes on the wire, want 3", buf.Len())
	}
}

// TestTransport_ConcurrentSend verifies that frames written from several
// goroutines never interleave.
func TestTransport_ConcurrentSend(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransport(&buf, &buf, defaultConfig())

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			payload := bytes.Repeat([]byte{byte(w)}, 100+w)
			for i := 0; i < perWorker; i++ {
				if err := tr.Send(int32(w), payload); err != nil {
					t.Errorf("Send: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	for i := 0; i < workers*perWorker; i++ {
		f, err := tr.RecvFrame()
		if err != nil {
			t.Fatalf("RecvFrame[%d]: %v", i, err)
		}
		want := bytes.Repeat([]byte{byte(f.ID)}, 100+int(f.ID))
		if !bytes.Equal(f.Payload, want) {
			t.Fatalf("frame %d from worker %d is corrupted", i, f.ID)
		}
	}
}
