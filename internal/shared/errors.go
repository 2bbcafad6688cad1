package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrConflict indicates a uniqueness violation on create.
	ErrConflict = errors.New("already exists")
	// ErrValidation indicates malformed or incomplete input.
	ErrValidation = errors.New("validation failed")
)
