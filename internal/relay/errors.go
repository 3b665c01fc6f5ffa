package relay

import "errors"

// Request classification errors.
var (
	// ErrMalformedJSON indicates the request body is not a JSON object.
	ErrMalformedJSON = errors.New("relay: request is not a JSON object")

	// ErrUnknownShape indicates the key set or values match no request shape.
	ErrUnknownShape = errors.New("relay: unrecognised request shape")
)
