package mchub

import (
	"fmt"

	"github.com/gstoney/mchub/packet"
)

// Frame is the body of one length-prefixed unit: a packet ID followed by the
// packet's payload.
type Frame struct {
	ID      int32
	Payload []byte
}

// ParseFrame splits a frame body into its packet ID and payload. The payload
// aliases b.
func ParseFrame(b []byte) (Frame, error) {
	r := packet.NewFrameReader(b)
	id, err := packet.ReadVarInt(&r)
	if err != nil {
		return Frame{}, fmt.Errorf("packet id: %w", err)
	}
	return Frame{ID: id, Payload: r.Rest()}, nil
}

// AppendFrame appends the complete wire form of a packet to dst:
// VarInt(len(id)+len(payload)), VarInt(id), payload.
func AppendFrame(dst []byte, id int32, payload []byte) []byte {
	n := packet.VarIntSize(id) + len(payload)
	dst = packet.AppendVarInt(dst, int32(n))
	dst = packet.AppendVarInt(dst, id)
	return append(dst, payload...)
}

// FrameSize reports how many bytes AppendFrame will produce.
func FrameSize(id int32, payloadLen int) int {
	n := packet.VarIntSize(id) + payloadLen
	return packet.VarIntSize(int32(n)) + n
}
