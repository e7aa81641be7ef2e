package utils

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		MinWait:     time.Millisecond,
		MaxWait:     5 * time.Millisecond,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastRetryConfig(2), func() (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestRetryRetriesTransientError(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastRetryConfig(2), func() (string, error) {
		calls++
		if calls == 1 {
			return "", &net.OpError{Op: "dial", Err: fmt.Errorf("connection refused")}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, calls)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastRetryConfig(3), func() (string, error) {
		calls++
		return "", fmt.Errorf("page is not a job posting")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastRetryConfig(2), func() (string, error) {
		calls++
		return "", &HTTPStatusError{StatusCode: http.StatusServiceUnavailable}
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)

	var httpErr *HTTPStatusError
	assert.ErrorAs(t, err, &httpErr)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Retry(ctx, fastRetryConfig(2), func() (string, error) {
		calls++
		return "", nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestRetryCustomClassifier(t *testing.T) {
	rc := fastRetryConfig(3)
	rc.RetryIf = func(err error) bool { return err.Error() != "permanent" }

	calls := 0
	_, err := Retry(context.Background(), rc, func() (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("flaky")
		}
		return "", fmt.Errorf("permanent")
	})

	require.Error(t, err)
	assert.Equal(t, "permanent", err.Error())
	assert.Equal(t, 3, calls)
}

func TestIsRetryableStatus(t *testing.T) {
	retryable := []int{429, 500, 502, 503, 504}
	for _, code := range retryable {
		assert.True(t, IsRetryableStatus(code), "status %d", code)
	}

	for _, code := range []int{200, 301, 400, 401, 403, 404, 422} {
		assert.False(t, IsRetryableStatus(code), "status %d", code)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	assert.True(t, IsRetryable(&net.DNSError{Err: "no such host", IsNotFound: true}))
	assert.True(t, IsRetryable(&net.OpError{Op: "read", Err: fmt.Errorf("reset")}))
	assert.True(t, IsRetryable(&HTTPStatusError{StatusCode: 429}))
	assert.False(t, IsRetryable(&HTTPStatusError{StatusCode: 404}))
	assert.False(t, IsRetryable(fmt.Errorf("parse error")))
}
