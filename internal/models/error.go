package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Reset token errors
	ErrTokenNotFound = errors.New("reset token not found")
	ErrTokenExpired  = errors.New("reset token expired")
	ErrTokenMismatch = errors.New("reset token mismatch")

	// Store errors
	// ErrConcurrentUpdate means a save raced with another writer; callers
	// must reload and retry with fresh state, never drop the write silently.
	ErrConcurrentUpdate = errors.New("concurrent update conflict")
)
