package distribution

import (
	"errors"
	"net/http"

	"github.com/notevault/notevault/internal/catalog"
)

// Domain errors for the distribution pipeline.
var (
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrIntegrityMismatch = errors.New("document failed integrity verification")
	ErrUnreadable        = errors.New("document content is unreadable")
	ErrNotPDF            = errors.New("document is not a valid PDF")
	ErrTooLarge          = errors.New("document exceeds the maximum upload size")
)

// MapHTTPStatus converts pipeline and catalog errors to HTTP status
// codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrIntegrityMismatch):
		return http.StatusConflict
	case errors.Is(err, ErrUnreadable):
		return http.StatusBadGateway
	case errors.Is(err, ErrNotPDF):
		return http.StatusBadRequest
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return catalog.MapHTTPStatus(err)
	}
}
