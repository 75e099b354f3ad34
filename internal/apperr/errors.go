// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	// ErrNoFormat means the preferred note syntax is unset or unknown.
	ErrNoFormat = errors.New("preferred format not configured")
)
