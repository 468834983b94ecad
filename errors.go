package mailscout

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors returned by the pipelines and the Service wrapper.
// Callers match them with errors.Is.
var (
	// ErrNoAvailableMethod means none of the requested discovery
	// methods has an available provider.
	ErrNoAvailableMethod = errors.New("no valid discovery methods available")

	// ErrUnauthorized means the API key is missing or not configured.
	ErrUnauthorized = errors.New("invalid API key")

	// ErrRateLimited means the identity exceeded its per-minute ceiling.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidLevel means the validation level is neither "basic"
	// nor "advanced".
	ErrInvalidLevel = errors.New("invalid validation level")
)

// APIError is the uniform failure shape surfaced to API callers.
type APIError struct {
	Message    string `json:"error"`
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d): %s", e.Message, e.StatusCode, e.Detail)
}

// AsAPIError maps an error from the pipelines onto the uniform
// {error, detail, status_code} shape. Unknown errors become a 500
// without leaking their internals into the detail text.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return &APIError{
			Message:    "unauthorized",
			Detail:     ErrUnauthorized.Error(),
			StatusCode: http.StatusUnauthorized,
		}
	case errors.Is(err, ErrRateLimited):
		return &APIError{
			Message:    "rate limit exceeded",
			Detail:     ErrRateLimited.Error(),
			StatusCode: http.StatusTooManyRequests,
		}
	case errors.Is(err, ErrNoAvailableMethod), errors.Is(err, ErrInvalidLevel):
		return &APIError{
			Message:    "bad request",
			Detail:     err.Error(),
			StatusCode: http.StatusBadRequest,
		}
	default:
		return &APIError{
			Message:    "internal error",
			Detail:     "request failed",
			StatusCode: http.StatusInternalServerError,
		}
	}
}
