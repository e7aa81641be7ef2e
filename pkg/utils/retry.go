package utils

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// RetryConfig controls bounded exponential backoff behavior
type RetryConfig struct {
	MaxAttempts int
	MinWait     time.Duration
	MaxWait     time.Duration

	// RetryIf overrides the transient-error classification. Nil means
	// IsRetryable.
	RetryIf func(error) bool
}

// DefaultRetryConfig matches the extraction strategies' retry contract:
// two attempts with a 1-5s exponential backoff window.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 2,
	MinWait:     1 * time.Second,
	MaxWait:     5 * time.Second,
}

// Retry runs fn up to rc.MaxAttempts times, doubling the wait between
// attempts from MinWait up to MaxWait. Only transient errors are retried;
// non-retryable errors and context cancellation return immediately.
func Retry[T any](ctx context.Context, rc RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	retryable := rc.RetryIf
	if retryable == nil {
		retryable = IsRetryable
	}

	wait := rc.MinWait
	for attempt := 1; attempt <= rc.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) || attempt == rc.MaxAttempts {
			break
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return zero, ctx.Err()
		}

		wait *= 2
		if wait > rc.MaxWait {
			wait = rc.MaxWait
		}
	}
	return zero, lastErr
}

// HTTPStatusError wraps a retryable HTTP status code as an error
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return http.StatusText(e.StatusCode)
}

// IsRetryable reports whether an error is transient enough to retry
func IsRetryable(err error) bool {
	var httpErr *HTTPStatusError
	if errors.As(err, &httpErr) {
		return IsRetryableStatus(httpErr.StatusCode)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// IsRetryableStatus reports whether an HTTP status code is worth retrying
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
