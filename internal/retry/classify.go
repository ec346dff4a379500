package retry

import (
	"context"
	"errors"
	"net"
)

// StatusCoder exposes the HTTP status behind a failed API call so the
// classifier can separate rate limits from authentication failures.
type StatusCoder interface {
	HTTPStatus() int
}

// IsTransient reports whether an error belongs to a failure class worth
// retrying: timeouts, rate limits, connection drops, server-side errors.
// Everything else, authentication and malformed requests included, is
// treated as permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return TransientStatus(sc.HTTPStatus())
	}

	// Connection-level faults (refused, reset, timed out) are worth a retry.
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// TransientStatus reports whether an HTTP status signals a temporary
// condition: server errors, request timeout, or rate limiting.
func TransientStatus(status int) bool {
	switch {
	case status >= 500 && status <= 599:
		return true
	case status == 408:
		return true
	case status == 429:
		return true
	default:
		return false
	}
}
