package model

import "errors"

// Common errors used across the application. All are locally recoverable:
// a failed command declines to mutate state, it never tears down the
// connection or the directory.
var (
	// Session directory errors
	ErrAlreadyRegistered = errors.New("session is already registered")
	ErrPlayerNotFound    = errors.New("player not found")

	// Room directory errors
	ErrRoomNotFound        = errors.New("room not found")
	ErrNotAuthorized       = errors.New("requester is not authorized")
	ErrAlreadyInRoom       = errors.New("requester is already in a room")
	ErrNotInRoom           = errors.New("requester is not in a room")
	ErrMalformedIdentifier = errors.New("malformed room identifier")

	// Metadata errors
	ErrCapacityExceeded = errors.New("metadata capacity exceeded")
	ErrInvalidKey       = errors.New("invalid metadata key")
)
