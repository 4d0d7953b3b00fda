package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

/* Failure taxonomy for upstream calls
 * Transient failures (network blips, 5xx, 429) are retried with backoff
 * by the resolver and publisher; permanent failures (other 4xx,
 * malformed responses) surface immediately as an Errored execution.
 */

// APIError is a non-2xx response from the provider API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream API status %d: %s", e.StatusCode, e.Message)
}

// Transient reports whether err is worth retrying. Non-API errors
// (timeouts, connection resets) are treated as transient.
func Transient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	return err != nil
}
