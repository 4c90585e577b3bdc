// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidDateFormat is returned when a date string is not in the
	// expected YYYY-MM-DD format.
	ErrInvalidDateFormat = errors.New("invalid date format, use YYYY-MM-DD")
)
