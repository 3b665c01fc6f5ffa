package listener

import "errors"

// Domain errors for the listener.
var (
	// ErrBindFailed indicates the socket could not be bound.
	ErrBindFailed = errors.New("listener: bind failed")

	// ErrTLSConfig indicates the server certificate could not be loaded.
	ErrTLSConfig = errors.New("listener: TLS configuration error")
)
