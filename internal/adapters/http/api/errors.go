package api

import (
	"errors"
	"fmt"
	"net/http"

	repository "github.com/okian/collegefinder/internal/adapters/repository"
	"github.com/okian/collegefinder/internal/domain/prediction"
	"github.com/okian/collegefinder/internal/domain/recommend"
)

// ErrBadRequest marks malformed or invalid request bodies and parameters.
var ErrBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// classify returns the status and error code for err.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, prediction.ErrUnknownCategory):
		return http.StatusBadRequest, "unknown_category"
	case errors.Is(err, prediction.ErrEmptyHistory):
		return http.StatusBadRequest, "empty_history"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, prediction.ErrInvalidInput),
		errors.Is(err, recommend.ErrInvalidProfile),
		errors.Is(err, repository.ErrInvalidCollege):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, prediction.ErrModelNotFound):
		return http.StatusServiceUnavailable, "model_unavailable"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
