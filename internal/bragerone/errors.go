package bragerone

import "errors"

// Domain-specific errors for the BragerOne cloud client.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrAuthFailed is returned when login or token refresh is rejected.
	ErrAuthFailed = errors.New("bragerone: authentication failed")

	// ErrNotAuthenticated is returned when a request is attempted before
	// a successful Login.
	ErrNotAuthenticated = errors.New("bragerone: not authenticated")

	// ErrRequestFailed is returned when an API request cannot be completed.
	ErrRequestFailed = errors.New("bragerone: request failed")

	// ErrDecodeFailed is returned when an API response cannot be decoded.
	ErrDecodeFailed = errors.New("bragerone: response decode failed")

	// ErrCommandRejected is returned when the API accepts a command request
	// but reports ok=false.
	ErrCommandRejected = errors.New("bragerone: command rejected")

	// ErrInvalidToken is returned when an access token cannot be parsed.
	ErrInvalidToken = errors.New("bragerone: invalid access token")

	// ErrStreamClosed is returned when operating on a closed event stream.
	ErrStreamClosed = errors.New("bragerone: event stream closed")
)
