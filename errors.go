package wiregob

import "errors"

// Error taxonomy. A codec instance is unsafe to reuse after any of these
// escapes a call - discard it and start a new stream.
var (
	// ErrTruncatedStream is returned when the underlying source runs out of
	// bytes in the middle of a message.
	ErrTruncatedStream = errors.New("wiregob: truncated stream")

	// ErrTruncatedMessage is returned when a message's declared length
	// promises bytes that a decode step then finds aren't there.
	ErrTruncatedMessage = errors.New("wiregob: truncated message")

	// ErrInvalidData covers malformed uvarints, non-UTF-8 strings,
	// out-of-range bools, and struct field indices that run off the end of
	// the schema.
	ErrInvalidData = errors.New("wiregob: invalid data")

	// ErrUnknownType is returned when a value message references a type id
	// that has no registered schema.
	ErrUnknownType = errors.New("wiregob: unknown type")

	// ErrRedefinition is returned when a schema message tries to register
	// an id that is already bound to a different schema.
	ErrRedefinition = errors.New("wiregob: type redefinition")

	// ErrTypeMismatch is returned by the binding layer when a wire value
	// can't be coerced into a record field's static type.
	ErrTypeMismatch = errors.New("wiregob: type mismatch")

	// ErrUnsupported is returned for wire constructs this codec recognizes
	// but does not interpret: fixed arrays, complex numbers, GobEncoder /
	// BinaryMarshaler / TextMarshaler payloads.
	ErrUnsupported = errors.New("wiregob: unsupported wire construct")

	// ErrTooManyTypes is returned when a bounded registry's cap is
	// exceeded by a new schema definition.
	ErrTooManyTypes = errors.New("wiregob: too many registered types")

	// ErrDuplicateFieldName is returned at binding-construction time when
	// two fields of a record share the same wire name, in either binding
	// mode.
	ErrDuplicateFieldName = errors.New("wiregob: duplicate field name")
)
