package auth

import "errors"

// Domain errors for the credential store.
var (
	// ErrUsersFile indicates the users file could not be read.
	ErrUsersFile = errors.New("auth: reading users file")

	// ErrInvalidUsersFile indicates the users file is not a flat JSON object.
	ErrInvalidUsersFile = errors.New("auth: invalid users file")
)
