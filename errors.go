package mchub

import (
	"errors"
	"fmt"
)

var (
	ErrPacketTooBig       = errors.New("packet too big")
	ErrInvalidFrameLength = errors.New("invalid frame length")
	ErrUnimplemented      = errors.New("unimplemented packet")

	// ErrDone is returned by a handler that has finished the conversation.
	// The connection is closed without being reported as a failure.
	ErrDone = errors.New("connection done")
)

// UnimplementedError reports a packet with no handler in the current phase.
type UnimplementedError struct {
	Phase Phase
	ID    int32
}

func (e *UnimplementedError) Error() string {
	return fmt.Sprintf("unimplemented packet 0x%02x in %s phase", e.ID, e.Phase)
}

func (e *UnimplementedError) Is(target error) bool {
	return target == ErrUnimplemented
}

// RejectedError is returned by handlers when a well-formed packet carries a
// value they refuse to act on.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "rejected: " + e.Reason
}

// Reject returns a *RejectedError with a formatted reason.
func Reject(format string, args ...any) error {
	return &RejectedError{Reason: fmt.Sprintf(format, args...)}
}

// DecodeError wraps a payload that could not be decoded into its packet type.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
