package packet

import (
	"errors"
	"io"
)

const (
	MaxVarIntLen  = 5
	MaxVarLongLen = 10
)

// VarInt tags an int32 field for variable-length encoding.
type VarInt int32

// VarLong tags an int64 field for variable-length encoding.
type VarLong int64

// AppendVarInt appends the encoding of v to b. Negative values always take
// MaxVarIntLen bytes since the unsigned bit pattern is encoded.
func AppendVarInt(b []byte, v int32) []byte {
	uv := uint32(v)
	for uv >= 0x80 {
		b = append(b, byte(uv&0x7F)|0x80)
		uv >>= 7
	}
	return append(b, byte(uv))
}

func AppendVarLong(b []byte, v int64) []byte {
	uv := uint64(v)
	for uv >= 0x80 {
		b = append(b, byte(uv&0x7F)|0x80)
		uv >>= 7
	}
	return append(b, byte(uv))
}

func EncodeVarInt(v int32) []byte {
	return AppendVarInt(make([]byte, 0, MaxVarIntLen), v)
}

func EncodeVarLong(v int64) []byte {
	return AppendVarLong(make([]byte, 0, MaxVarLongLen), v)
}

// VarIntSize reports how many bytes EncodeVarInt(v) produces.
func VarIntSize(v int32) int {
	uv := uint32(v)
	n := 1
	for uv >= 0x80 {
		uv >>= 7
		n++
	}
	return n
}

// DecodeVarInt decodes a VarInt from the front of b and returns the value
// along with the number of bytes it occupied.
func DecodeVarInt(b []byte) (int32, int, error) {
	var v uint32
	var shift uint

	for i := 0; i < len(b); i++ {
		v |= uint32(b[i]&0x7F) << shift
		if b[i]&0x80 == 0 {
			return int32(v), i + 1, nil
		}
		shift += 7
		if shift >= 32 {
			return 0, i + 1, ErrVarIntTooLong
		}
	}
	return 0, len(b), io.ErrUnexpectedEOF
}

func DecodeVarLong(b []byte) (int64, int, error) {
	var v uint64
	var shift uint

	for i := 0; i < len(b); i++ {
		v |= uint64(b[i]&0x7F) << shift
		if b[i]&0x80 == 0 {
			return int64(v), i + 1, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, i + 1, ErrVarLongTooLong
		}
	}
	return 0, len(b), io.ErrUnexpectedEOF
}

func WriteVarInt(w io.Writer, v int32) error {
	var buf [MaxVarIntLen]byte
	_, err := w.Write(AppendVarInt(buf[:0], v))
	return err
}

func WriteVarLong(w io.Writer, v int64) error {
	var buf [MaxVarLongLen]byte
	_, err := w.Write(AppendVarLong(buf[:0], v))
	return err
}

// ReadVarInt reads a VarInt one byte at a time.
//
// io.EOF is only returned when the source ends before the first byte, so a
// peer closing between frames can be told apart from a truncated value.
func ReadVarInt(r io.ByteReader) (int32, error) {
	var v uint32
	var shift uint

	for n := 0; ; n++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, unexpectedAfter(n, err)
		}

		v |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return int32(v), nil
		}

		shift += 7
		if shift >= 32 {
			return 0, ErrVarIntTooLong
		}
	}
}

func ReadVarLong(r io.ByteReader) (int64, error) {
	var v uint64
	var shift uint

	for n := 0; ; n++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, unexpectedAfter(n, err)
		}

		v |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return int64(v), nil
		}

		shift += 7
		if shift >= 64 {
			return 0, ErrVarLongTooLong
		}
	}
}

func unexpectedAfter(n int, err error) error {
	if n > 0 && errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
