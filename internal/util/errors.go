package util

import (
	"errors"
	"fmt"
)

// ErrInvalidValue is a business-rule violation carrying its user-facing
// message verbatim.
type ErrInvalidValue string

func (e ErrInvalidValue) Error() string {
	return string(e)
}

// ErrBlankValue signals a required text field that was empty or
// whitespace-only, it holds the field name.
type ErrBlankValue string

func (e ErrBlankValue) Error() string {
	return fmt.Sprintf("field cannot be blank: %s", string(e))
}

var (
	// ErrNotFound is returned when the targeted row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
)
