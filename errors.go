package dicom

import (
	"errors"
	"fmt"
)

// Kind classifies a stream-level error raised by the parser, flows, or
// transforms.
type Kind int

const (
	// ProtocolViolation means the bytes do not represent DICOM: a failed
	// preamble-or-header sniff, implicit-VR big-endian detected, or a
	// malformed header.
	ProtocolViolation Kind = iota
	// Truncation means the stream ended mid-element, not at a value
	// boundary.
	Truncation
	// BufferOverflow means a collect-and-buffer transformation exceeded
	// its configured max buffer.
	BufferOverflow
	// InvalidModification means an attempt to insert a sequence via the
	// modify flow, or to insert/modify a tag whose VR cannot be derived.
	InvalidModification
	// EncodingMismatch means the deflated dataset stream could not be
	// inflated. The explicit-VR-LE normalizer does not compare received
	// value byte counts with the stated length and never raises it.
	EncodingMismatch
)

func (k Kind) String() string {
	switch k {
	case ProtocolViolation:
		return "protocol violation"
	case Truncation:
		return "truncation"
	case BufferOverflow:
		return "buffer overflow"
	case InvalidModification:
		return "invalid modification"
	case EncodingMismatch:
		return "encoding mismatch"
	default:
		return "unknown error"
	}
}

// Error is the stream-level error type raised by the parser, flows, and
// transforms of this module. The parser raises an Error at the first
// unrecoverable event; downstream flows propagate it unchanged.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dicom: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("dicom: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, &dicom.Error{Kind: dicom.ProtocolViolation})
// match any Error of the same Kind, whatever its Msg and Err.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

func newErr(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapErr(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// NotDicom reports whether err is an Error of Kind ProtocolViolation:
// a failed sniff of the leading bytes, implicit VR big endian, or a
// malformed header later in the stream.
func NotDicom(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ProtocolViolation
}
