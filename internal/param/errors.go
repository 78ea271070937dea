package param

import "errors"

// Domain errors for write preparation.
var (
	// ErrInvalidEnumValue is returned when an input display value is neither
	// a known enum label nor a raw value present in the enum mapping.
	ErrInvalidEnumValue = errors.New("param: invalid enum value")

	// ErrValueOutOfRange is returned when a computed raw value falls outside
	// the symbol's raw minimum/maximum bounds.
	ErrValueOutOfRange = errors.New("param: value out of range")

	// ErrInvalidTransform is returned when a numeric transform cannot be
	// inverted (scale of zero).
	ErrInvalidTransform = errors.New("param: invalid transform")

	// ErrNoWriteRoute is returned when a symbol has neither a parameter
	// address nor a command rule. This indicates a classification defect
	// upstream and is a hard failure for the write.
	ErrNoWriteRoute = errors.New("param: no command route available")
)
