package signature

import "errors"

// Sentinel errors for signature construction.
var (
	// ErrDuplicateField is returned when two fields share a name.
	ErrDuplicateField = errors.New("duplicate field")

	// ErrNoInputs is returned when a signature has no input fields.
	ErrNoInputs = errors.New("signature has no input fields")

	// ErrNoOutputs is returned when a signature has no output fields.
	ErrNoOutputs = errors.New("signature has no output fields")

	// ErrUnknownType is returned for a type name outside the supported set.
	ErrUnknownType = errors.New("unknown field type")

	// ErrInvalidName is returned for a field name that is not an identifier.
	ErrInvalidName = errors.New("invalid field name")

	// ErrSyntax is returned when a signature string is malformed.
	ErrSyntax = errors.New("signature syntax error")
)
