package packet

import (
	"bytes"
	"fmt"
	"io"
	"reflect"

	"github.com/google/uuid"
)

// Plain structs without MarshalWire/UnmarshalWire are walked field by field.
// An int32 or int64 field can opt into variable-length encoding either by
// using the VarInt/VarLong types or with a `field:"VarInt"` /
// `field:"VarLong"` tag. Fields tagged `field:"-"` and unexported fields are
// skipped.

var (
	byteType    = reflect.TypeOf(byte(0))
	uuidType    = reflect.TypeOf(uuid.UUID{})
	varIntType  = reflect.TypeOf(VarInt(0))
	varLongType = reflect.TypeOf(VarLong(0))

	marshalerType   = reflect.TypeOf((*Marshaler)(nil)).Elem()
	unmarshalerType = reflect.TypeOf((*Unmarshaler)(nil)).Elem()
)

type fieldKind int

const (
	fixedKind fieldKind = iota
	varIntKind
	varLongKind
)

func reflectValue(v any) reflect.Value {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	return rv
}

func unsupported(t reflect.Type) error {
	if t == nil {
		return &UnsupportedError{Construct: "nil value"}
	}
	if t.Name() == t.Kind().String() {
		return &UnsupportedError{Construct: t.Kind().String()}
	}
	return &UnsupportedError{Construct: fmt.Sprintf("%s (%s)", t.Kind(), t)}
}

func tagKind(tag reflect.StructTag) fieldKind {
	switch tag.Get("field") {
	case "VarInt":
		return varIntKind
	case "VarLong":
		return varLongKind
	}
	return fixedKind
}

func encodeValue(e Encoder, v reflect.Value) error {
	if !v.IsValid() {
		return unsupported(nil)
	}
	return encodeField(e, v, fixedKind)
}

func encodeField(e Encoder, v reflect.Value, kind fieldKind) error {
	t := v.Type()

	if t.Kind() == reflect.Pointer {
		return unsupported(t)
	}
	if t.Implements(marshalerType) {
		return v.Interface().(Marshaler).MarshalWire(e)
	}
	if v.CanAddr() && reflect.PointerTo(t).Implements(marshalerType) {
		return v.Addr().Interface().(Marshaler).MarshalWire(e)
	}

	switch {
	case t == uuidType:
		return e.WriteUUID(v.Interface().(uuid.UUID))
	case t == varIntType || (kind == varIntKind && t.Kind() == reflect.Int32):
		return e.WriteVarInt(int32(v.Int()))
	case t == varLongType || (kind == varLongKind && t.Kind() == reflect.Int64):
		return e.WriteVarLong(v.Int())
	}

	switch t.Kind() {
	case reflect.Bool:
		return e.WriteBool(v.Bool())
	case reflect.Int8:
		return e.WriteInt8(int8(v.Int()))
	case reflect.Int16:
		return e.WriteInt16(int16(v.Int()))
	case reflect.Int32:
		return e.WriteInt32(int32(v.Int()))
	case reflect.Int64:
		return e.WriteInt64(v.Int())
	case reflect.Uint8:
		return e.WriteUint8(uint8(v.Uint()))
	case reflect.Uint16:
		return e.WriteUint16(uint16(v.Uint()))
	case reflect.Uint32:
		return e.WriteUint32(uint32(v.Uint()))
	case reflect.Uint64:
		return e.WriteUint64(v.Uint())
	case reflect.String:
		return e.WriteString(v.String())

	case reflect.Struct:
		if err := e.BeginRecord(t.Name()); err != nil {
			return err
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || f.Tag.Get("field") == "-" {
				continue
			}
			if err := encodeField(e, v.Field(i), tagKind(f.Tag)); err != nil {
				return err
			}
		}
		return e.EndRecord()

	case reflect.Slice:
		if zeroWidth(t.Elem()) {
			return unsupported(t)
		}
		if err := e.WriteVarInt(int32(v.Len())); err != nil {
			return err
		}
		if t.Elem() == byteType {
			return e.WriteRaw(v.Bytes())
		}
		return encodeElems(e, v, kind)

	case reflect.Array:
		return encodeElems(e, v, kind)
	}

	return unsupported(t)
}

func encodeElems(e Encoder, v reflect.Value, kind fieldKind) error {
	for i := 0; i < v.Len(); i++ {
		if err := encodeField(e, v.Index(i), kind); err != nil {
			return err
		}
	}
	return nil
}

func decodeInto(d Decoder, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrNotPointer
	}
	return decodeField(d, rv.Elem(), fixedKind)
}

func decodeField(d Decoder, v reflect.Value, kind fieldKind) error {
	t := v.Type()

	if t.Kind() == reflect.Pointer {
		return unsupported(t)
	}
	if v.CanAddr() && reflect.PointerTo(t).Implements(unmarshalerType) {
		return v.Addr().Interface().(Unmarshaler).UnmarshalWire(d)
	}

	switch {
	case t == uuidType:
		id, err := d.ReadUUID()
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(id))
		return nil
	case t == varIntType || (kind == varIntKind && t.Kind() == reflect.Int32):
		n, err := d.ReadVarInt()
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
		return nil
	case t == varLongType || (kind == varLongKind && t.Kind() == reflect.Int64):
		n, err := d.ReadVarLong()
		if err != nil {
			return err
		}
		v.SetInt(n)
		return nil
	}

	switch t.Kind() {
	case reflect.Bool:
		b, err := d.ReadBool()
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int8:
		n, err := d.ReadInt8()
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
	case reflect.Int16:
		n, err := d.ReadInt16()
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
	case reflect.Int32:
		n, err := d.ReadInt32()
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
	case reflect.Int64:
		n, err := d.ReadInt64()
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint8:
		n, err := d.ReadUint8()
		if err != nil {
			return err
		}
		v.SetUint(uint64(n))
	case reflect.Uint16:
		n, err := d.ReadUint16()
		if err != nil {
			return err
		}
		v.SetUint(uint64(n))
	case reflect.Uint32:
		n, err := d.ReadUint32()
		if err != nil {
			return err
		}
		v.SetUint(uint64(n))
	case reflect.Uint64:
		n, err := d.ReadUint64()
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.String:
		s, err := d.ReadString()
		if err != nil {
			return err
		}
		v.SetString(s)

	case reflect.Struct:
		if err := d.BeginRecord(t.Name()); err != nil {
			return err
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || f.Tag.Get("field") == "-" {
				continue
			}
			if err := decodeField(d, v.Field(i), tagKind(f.Tag)); err != nil {
				return err
			}
		}
		return d.EndRecord()

	case reflect.Slice:
		return decodeSlice(d, v, kind)

	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := decodeField(d, v.Index(i), kind); err != nil {
				return err
			}
		}

	default:
		return unsupported(t)
	}
	return nil
}

func decodeSlice(d Decoder, v reflect.Value, kind fieldKind) error {
	n, err := d.ReadVarInt()
	if err != nil {
		return err
	}
	if n < 0 {
		return ErrNegativeLength
	}

	t := v.Type()
	if zeroWidth(t.Elem()) {
		return unsupported(t)
	}
	// Every remaining element takes at least one byte.
	if int(n) > d.Remaining() {
		return io.ErrUnexpectedEOF
	}
	if t.Elem() == byteType {
		b, err := d.ReadRaw(int(n))
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(bytes.Clone(b)).Convert(t))
		return nil
	}

	s := reflect.MakeSlice(t, 0, int(n))
	for i := 0; i < int(n); i++ {
		elem := reflect.New(t.Elem()).Elem()
		if err := decodeField(d, elem, kind); err != nil {
			return err
		}
		s = reflect.Append(s, elem)
	}
	v.Set(s)
	return nil
}

// zeroWidth reports whether values of t encode to no bytes at all. A count of
// such elements could not be checked against the input.
func zeroWidth(t reflect.Type) bool {
	if t.Implements(marshalerType) || reflect.PointerTo(t).Implements(unmarshalerType) {
		return false
	}
	switch t.Kind() {
	case reflect.Array:
		return t.Len() == 0 || zeroWidth(t.Elem())
	case reflect.Struct:
		if t == uuidType {
			return false
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.IsExported() && f.Tag.Get("field") != "-" && !zeroWidth(f.Type) {
				return false
			}
		}
		return true
	}
	return false
}
