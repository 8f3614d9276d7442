package models

import "errors"

// Failure categories shared by the access pipeline, services and handlers.
// Handlers translate them to status codes with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	// ErrNotFound covers both a missing resource and one the caller may not access.
	ErrNotFound = errors.New("not found")

	ErrConflict    = errors.New("conflict")
	ErrNotModified = errors.New("not modified")
	ErrPersistence = errors.New("persistence failure")
)
