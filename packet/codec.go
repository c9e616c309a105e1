package packet

import (
	"errors"
	"io"

	"github.com/google/uuid"
)

// Encoder receives the fields of a record in declaration order. Nothing but
// the field values reaches the wire: no names, tags or lengths are written
// for records, so the shape of the record is the schema.
type Encoder interface {
	BeginRecord(name string) error
	EndRecord() error

	WriteBool(v bool) error
	WriteUint8(v uint8) error
	WriteUint16(v uint16) error
	WriteUint32(v uint32) error
	WriteUint64(v uint64) error
	WriteInt8(v int8) error
	WriteInt16(v int16) error
	WriteInt32(v int32) error
	WriteInt64(v int64) error
	WriteVarInt(v int32) error
	WriteVarLong(v int64) error
	WriteString(v string) error
	WriteUUID(v uuid.UUID) error
	WriteRaw(b []byte) error
}

// Decoder is the read side of Encoder.
type Decoder interface {
	BeginRecord(name string) error
	EndRecord() error

	ReadBool() (bool, error)
	ReadUint8() (uint8, error)
	ReadUint16() (uint16, error)
	ReadUint32() (uint32, error)
	ReadUint64() (uint64, error)
	ReadInt8() (int8, error)
	ReadInt16() (int16, error)
	ReadInt32() (int32, error)
	ReadInt64() (int64, error)
	ReadVarInt() (int32, error)
	ReadVarLong() (int64, error)
	ReadString() (string, error)
	ReadUUID() (uuid.UUID, error)
	ReadRaw(n int) ([]byte, error)

	Remaining() int
}

// Marshaler is implemented by records that write their own fields.
type Marshaler interface {
	MarshalWire(e Encoder) error
}

// Unmarshaler is implemented by records that read their own fields.
type Unmarshaler interface {
	UnmarshalWire(d Decoder) error
}

// Packet is a record bound to a packet ID. IDs are only unique within a
// connection phase and direction.
type Packet interface {
	ID() int32
	Marshaler
}

var ErrNotPointer = errors.New("packet: Unmarshal requires a non-nil pointer")

// Marshal encodes v into a new byte slice.
func Marshal(v any) ([]byte, error) {
	var b Buffer
	if err := MarshalTo(&b, v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// MarshalTo feeds v to e, using v's own MarshalWire when it has one.
func MarshalTo(e Encoder, v any) error {
	if m, ok := v.(Marshaler); ok {
		return m.MarshalWire(e)
	}
	return encodeValue(e, reflectValue(v))
}

// Unmarshal decodes exactly one value from b. Bytes left over after the
// value are reported as ErrTrailingBytes.
func Unmarshal(b []byte, v any) error {
	r := NewFrameReader(b)
	if err := UnmarshalFrom(&r, v); err != nil {
		return err
	}
	if r.Remaining() != 0 {
		return ErrTrailingBytes
	}
	return nil
}

// UnmarshalFrom decodes one value from d and leaves any following bytes
// unread.
func UnmarshalFrom(d Decoder, v any) error {
	if u, ok := v.(Unmarshaler); ok {
		return u.UnmarshalWire(d)
	}
	return decodeInto(d, v)
}

// Buffer is the Encoder used for outgoing packets.
type Buffer struct {
	buf []byte
}

func NewBuffer(b []byte) *Buffer {
	return &Buffer{buf: b}
}

func (b *Buffer) Bytes() []byte { return b.buf }
func (b *Buffer) Len() int      { return len(b.buf) }
func (b *Buffer) Reset()        { b.buf = b.buf[:0] }

func (b *Buffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *Buffer) BeginRecord(string) error { return nil }
func (b *Buffer) EndRecord() error         { return nil }

func (b *Buffer) WriteBool(v bool) error     { return WriteBoolean(b, v) }
func (b *Buffer) WriteUint8(v uint8) error   { return WriteUnsignedByte(b, v) }
func (b *Buffer) WriteUint16(v uint16) error { return WriteUnsignedShort(b, v) }
func (b *Buffer) WriteUint32(v uint32) error { return WriteUnsignedInt(b, v) }
func (b *Buffer) WriteUint64(v uint64) error { return WriteUnsignedLong(b, v) }
func (b *Buffer) WriteInt8(v int8) error     { return WriteUnsignedByte(b, uint8(v)) }
func (b *Buffer) WriteInt16(v int16) error   { return WriteUnsignedShort(b, uint16(v)) }
func (b *Buffer) WriteInt32(v int32) error   { return WriteUnsignedInt(b, uint32(v)) }
func (b *Buffer) WriteInt64(v int64) error   { return WriteUnsignedLong(b, uint64(v)) }
func (b *Buffer) WriteString(v string) error { return WriteString(b, v) }
func (b *Buffer) WriteUUID(v uuid.UUID) error {
	return WriteUUID(b, v)
}

func (b *Buffer) WriteVarInt(v int32) error {
	b.buf = AppendVarInt(b.buf, v)
	return nil
}

func (b *Buffer) WriteVarLong(v int64) error {
	b.buf = AppendVarLong(b.buf, v)
	return nil
}

func (b *Buffer) WriteRaw(p []byte) error {
	b.buf = append(b.buf, p...)
	return nil
}

var _ io.Writer = (*Buffer)(nil)

func (r *FrameReader) BeginRecord(string) error { return nil }
func (r *FrameReader) EndRecord() error         { return nil }

func (r *FrameReader) ReadBool() (bool, error)       { return ReadBoolean(r) }
func (r *FrameReader) ReadUint8() (uint8, error)     { return ReadUnsignedByte(r) }
func (r *FrameReader) ReadUint16() (uint16, error)   { return ReadUnsignedShort(r) }
func (r *FrameReader) ReadUint32() (uint32, error)   { return ReadUnsignedInt(r) }
func (r *FrameReader) ReadUint64() (uint64, error)   { return ReadUnsignedLong(r) }
func (r *FrameReader) ReadVarInt() (int32, error)    { return ReadVarInt(r) }
func (r *FrameReader) ReadVarLong() (int64, error)   { return ReadVarLong(r) }
func (r *FrameReader) ReadString() (string, error)   { return ReadString(r) }
func (r *FrameReader) ReadUUID() (uuid.UUID, error)  { return ReadUUID(r) }
func (r *FrameReader) ReadRaw(n int) ([]byte, error) { return r.Next(n) }

func (r *FrameReader) ReadInt8() (int8, error) {
	v, err := ReadUnsignedByte(r)
	return int8(v), err
}

func (r *FrameReader) ReadInt16() (int16, error) {
	v, err := ReadUnsignedShort(r)
	return int16(v), err
}

func (r *FrameReader) ReadInt32() (int32, error) {
	v, err := ReadUnsignedInt(r)
	return int32(v), err
}

func (r *FrameReader) ReadInt64() (int64, error) {
	v, err := ReadUnsignedLong(r)
	return int64(v), err
}

var (
	_ Encoder = (*Buffer)(nil)
	_ Decoder = (*FrameReader)(nil)
)
