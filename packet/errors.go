package packet

import (
	"errors"
	"fmt"
)

// Truncated input is reported as io.ErrUnexpectedEOF so callers can match it
// the same way for stream and slice reads.
var (
	ErrVarIntTooLong  = errors.New("VarInt is too long")
	ErrVarLongTooLong = errors.New("VarLong is too long")
	ErrNegativeLength = errors.New("negative length")
	ErrMalformedUTF8  = errors.New("malformed UTF-8 string")
	ErrInvalidBoolean = errors.New("invalid byte for Boolean field")
	ErrTrailingBytes  = errors.New("trailing bytes have been left")
	ErrUnsupported    = errors.New("not supported by format")
)

// UnsupportedError reports a Go construct that has no wire representation.
type UnsupportedError struct {
	Construct string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("feature %s not supported by format", e.Construct)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}
