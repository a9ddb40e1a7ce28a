package domain

import "errors"

var (
	// ErrForbidden is returned when the caller may not act on a resource.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput marks caller mistakes that are not struct-tag failures.
	ErrInvalidInput = errors.New("invalid input")
)
