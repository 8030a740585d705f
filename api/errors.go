package api

import (
	"errors"
	"net/http"

	"github.com/xraph/formrelay"
	"github.com/xraph/formrelay/journal"
)

// statusFor maps relay errors to HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, formrelay.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, formrelay.ErrQuestionNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, formrelay.ErrRelayFailed):
		return http.StatusBadGateway
	case errors.Is(err, journal.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, journal.ErrStoreClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
