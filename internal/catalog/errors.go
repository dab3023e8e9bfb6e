package catalog

import (
	"errors"
	"net/http"
)

// Domain errors for catalog operations.
var (
	ErrNotFound      = errors.New("document not found")
	ErrAmbiguous     = errors.New("identifier prefix matches multiple documents")
	ErrDuplicate     = errors.New("document identifier already exists")
	ErrQuotaExceeded = errors.New("owner has reached the active document limit")
	ErrValidation    = errors.New("validation failed")
)

// MapHTTPStatus converts domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAmbiguous):
		return http.StatusConflict
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
