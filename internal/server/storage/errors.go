package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that a user with this username or
	// email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrCredentialConflict indicates that a conditional refresh rotation
	// did not match the stored credential: it was already rotated or
	// cleared by a concurrent request
	ErrCredentialConflict = errors.New("refresh credential was changed concurrently")
)
