package mexc

import (
	"errors"
	"fmt"
)

// APIError is returned for 4xx/5xx responses from the exchange. It carries
// the status code and raw payload for diagnostics; callers log it and keep
// the trading loop alive instead of crashing.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mexc: HTTP %d on %s: %s", e.StatusCode, e.Path, e.Body)
}

// IsAPIError reports whether err wraps an exchange-reported HTTP error and
// returns it when so.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
