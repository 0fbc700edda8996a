package repository

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrNotFound       = errors.New("college not found")
	ErrInvalidCollege = errors.New("invalid college")
)
