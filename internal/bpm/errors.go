package bpm

import "fmt"

// ErrorKind classifies a record decode failure.
type ErrorKind string

const (
	TruncatedBuffer ErrorKind = "truncated_buffer"
	InvalidEnumCode ErrorKind = "invalid_enum_code"
)

// DecodeError describes why a single record could not be decoded. It never
// carries a partially decoded measurement.
type DecodeError struct {
	Kind   ErrorKind
	Field  string // segment being decoded when the failure occurred
	Offset int    // byte offset of that segment
	Need   int    // bytes required from Offset (TruncatedBuffer only)
	Have   int    // bytes available from Offset (TruncatedBuffer only)
	Code   int    // offending code (InvalidEnumCode only)
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case TruncatedBuffer:
		return fmt.Sprintf("%s: %s at offset %d needs %d bytes, have %d", e.Kind, e.Field, e.Offset, e.Need, e.Have)
	case InvalidEnumCode:
		return fmt.Sprintf("%s: %s at offset %d has undefined code %d", e.Kind, e.Field, e.Offset, e.Code)
	default:
		return fmt.Sprintf("%s: %s at offset %d", e.Kind, e.Field, e.Offset)
	}
}

// Is lets errors.Is match DecodeError values by Kind.
func (e *DecodeError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*DecodeError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is.
var (
	ErrTruncatedBuffer = &DecodeError{Kind: TruncatedBuffer}
	ErrInvalidEnumCode = &DecodeError{Kind: InvalidEnumCode}
)
