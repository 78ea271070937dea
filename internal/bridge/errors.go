package bridge

import "errors"

// Domain-specific errors for bridge operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNoCachedDescriptors is returned when the repository holds no
	// descriptors and a full bootstrap is required.
	ErrNoCachedDescriptors = errors.New("bridge: no cached descriptors")

	// ErrUnknownEntity is returned for commands addressed to a
	// devid/symbol pair the bridge does not expose.
	ErrUnknownEntity = errors.New("bridge: unknown entity")

	// ErrWriteFailed is returned when a validated command could not be
	// delivered to the vendor API.
	ErrWriteFailed = errors.New("bridge: write failed")

	// ErrNoCommand is returned when the raw command route is selected but
	// the matched rule carries no command name.
	ErrNoCommand = errors.New("bridge: command rule has no command")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("bridge: already started")
)
