package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig controls retry behavior.
type RetryConfig struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// ProviderRetryConfig retries twice, waiting 2^attempt seconds between tries.
var ProviderRetryConfig = RetryConfig{
	MaxRetries:  2,
	InitialWait: 1 * time.Second,
	MaxWait:     8 * time.Second,
	Multiplier:  2.0,
}

func (rc RetryConfig) backOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = rc.InitialWait
	bo.MaxInterval = rc.MaxWait
	bo.Multiplier = rc.Multiplier
	bo.RandomizationFactor = 0
	return bo
}

// RetryDo retries fn up to MaxRetries times with exponential backoff.
// Retries only on retryable errors; returns immediately on non-retryable or context cancellation.
func RetryDo[T any](ctx context.Context, rc RetryConfig, fn func() (T, error)) (T, error) {
	attempt := 0
	op := func() (T, error) {
		attempt++
		result, err := fn()
		if err != nil && !IsRetryable(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}
	notify := func(err error, wait time.Duration) {
		IncrProviderRetries()
		slog.Debug("retrying", slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.Any("error", err))
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(rc.backOff()),
		backoff.WithMaxTries(uint(rc.MaxRetries+1)),
		backoff.WithNotify(notify),
	)
}

// CheckStatus turns a non-2xx response into a *StatusError, closing its body.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	resp.Body.Close()
	return &StatusError{StatusCode: resp.StatusCode}
}

// StatusError wraps a non-2xx HTTP status code.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsRetryable returns true for transient errors worth retrying:
// timeouts, connection failures, 429 and 5xx.
func IsRetryable(err error) bool {
	var httpErr *StatusError
	if errors.As(err, &httpErr) {
		return IsRetryableStatus(httpErr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Connection errors (dial failures, connection refused, etc.)
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// net.Error includes OpError, so check after OpError
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// IsRetryableStatus returns true for HTTP status codes worth retrying.
func IsRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}
