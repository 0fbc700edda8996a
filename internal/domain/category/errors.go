package category

import (
	"errors"
	"fmt"
)

// Sentinel kinds for category errors.
var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrEmptyMapping    = errors.New("empty category mapping")
	ErrInvalidMapping  = errors.New("invalid category mapping")
)

// UnknownError reports a code outside the recognised set.
type UnknownError struct {
	Code string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown category: %q", e.Code)
}

// Unwrap lets errors.Is match ErrUnknownCategory.
func (e *UnknownError) Unwrap() error { return ErrUnknownCategory }
