package wordpress

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by every call when the upstream base URL is unset.
var ErrNotConfigured = errors.New("wordpress: WORDPRESS_API_URL is not set")

// ErrUpstreamTimeout is returned when a single upstream request exceeds the client timeout.
var ErrUpstreamTimeout = errors.New("wordpress: upstream request timed out")

// UpstreamError reports a non-2xx response from the WordPress REST API.
type UpstreamError struct {
	Status     int
	StatusText string
	Endpoint   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("WordPress API error: %d %s (%s)", e.Status, e.StatusText, e.Endpoint)
}

// IsUpstreamFailure reports whether err came from the upstream API (bad status or timeout)
// rather than from local configuration or caller cancellation.
func IsUpstreamFailure(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) || errors.Is(err, ErrUpstreamTimeout)
}
