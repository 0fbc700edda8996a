package prediction

import (
	"errors"

	"github.com/okian/collegefinder/internal/domain/category"
)

// Sentinel kinds for prediction errors.
var (
	// ErrModelNotFound means no usable artifact is available. Operational fault.
	ErrModelNotFound = errors.New("model not found")
	// ErrInvalidArtifact is wrapped together with ErrModelNotFound when an
	// artifact exists but is malformed.
	ErrInvalidArtifact = errors.New("invalid model artifact")
	// ErrEmptyHistory means branch prediction was called without history.
	ErrEmptyHistory = errors.New("no historical data provided")
	// ErrInvalidInput covers other caller mistakes (non-positive ranks).
	ErrInvalidInput = errors.New("invalid prediction input")
	// ErrUnknownCategory aliases the category kind so callers need one import.
	ErrUnknownCategory = category.ErrUnknownCategory
)

// UnknownCategoryError carries the offending category code.
type UnknownCategoryError = category.UnknownError

// IsBadInput reports whether err is the caller's fault.
func IsBadInput(err error) bool {
	return errors.Is(err, ErrUnknownCategory) || errors.Is(err, ErrEmptyHistory) || errors.Is(err, ErrInvalidInput)
}

// errorKind is the metrics label for err.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownCategory):
		return "unknown_category"
	case errors.Is(err, ErrEmptyHistory):
		return "empty_history"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrModelNotFound):
		return "model_not_found"
	default:
		return "internal"
	}
}
