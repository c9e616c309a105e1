package packet

import (
	"encoding/binary"
	"io"
	"unicode/utf8"

	"github.com/google/uuid"
)

func WriteBoolean(w io.Writer, v bool) (err error) {
	b := byte(0)
	if v {
		b = 1
	}

	_, err = w.Write([]byte{b})
	return
}

func ReadBoolean(r *FrameReader) (v bool, err error) {
	b, err := r.ReadByte()
	if err != nil {
		return
	}

	switch b {
	case 0:
		v = false
	case 1:
		v = true
	default:
		err = ErrInvalidBoolean
	}

	return
}

func WriteUnsignedByte(w io.Writer, v uint8) (err error) {
	_, err = w.Write([]byte{v})
	return
}

func ReadUnsignedByte(r *FrameReader) (v uint8, err error) {
	return r.ReadByte()
}

func WriteUnsignedShort(w io.Writer, v uint16) (err error) {
	return binary.Write(w, binary.BigEndian, v)
}

func ReadUnsignedShort(r *FrameReader) (v uint16, err error) {
	b, err := r.Next(2)
	if err != nil {
		return
	}

	v = binary.BigEndian.Uint16(b)
	return
}

func WriteUnsignedInt(w io.Writer, v uint32) (err error) {
	return binary.Write(w, binary.BigEndian, v)
}

func ReadUnsignedInt(r *FrameReader) (v uint32, err error) {
	b, err := r.Next(4)
	if err != nil {
		return
	}

	v = binary.BigEndian.Uint32(b)
	return
}

func WriteUnsignedLong(w io.Writer, v uint64) (err error) {
	return binary.Write(w, binary.BigEndian, v)
}

func ReadUnsignedLong(r *FrameReader) (v uint64, err error) {
	b, err := r.Next(8)
	if err != nil {
		return
	}

	v = binary.BigEndian.Uint64(b)
	return
}

func WriteString(w io.Writer, v string) (err error) {
	err = WriteVarInt(w, int32(len(v)))
	if err != nil {
		return
	}
	_, err = io.WriteString(w, v)
	return
}

// ReadString reads a VarInt byte length followed by that many bytes of UTF-8.
// The declared length must fit in what is left of the frame.
func ReadString(r *FrameReader) (v string, err error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return
	}

	if length < 0 {
		err = ErrNegativeLength
		return
	}

	buf, err := r.Next(int(length))
	if err != nil {
		return
	}

	if !utf8.Valid(buf) {
		err = ErrMalformedUTF8
		return
	}
	return string(buf), nil
}

func WriteUUID(w io.Writer, v uuid.UUID) (err error) {
	_, err = w.Write(v[:])
	return
}

func ReadUUID(r *FrameReader) (v uuid.UUID, err error) {
	b, err := r.Next(16)
	if err != nil {
		return
	}

	v = uuid.UUID(b)
	return
}
