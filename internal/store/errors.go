package store

import "errors"

var (
	// ErrNotFound covers both a missing row and a row owned by another
	// user. Ownership checks never reveal which.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when registering an already-used email.
	ErrDuplicateEmail = errors.New("email already registered")
)
