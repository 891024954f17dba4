package llm

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const maxTransportRetries = 3

// withRetry runs fn, retrying transient transport failures with exponential
// backoff (base delay doubling, bounded attempts). Provider responses such
// as rate-limit or bad-request are typed errors, not transport failures, and
// are never retried here.
func withRetry(ctx context.Context, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.Multiplier = 2.0
	bo.MaxInterval = 8 * time.Second

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, maxTransportRetries), ctx))
}

// isTransient reports whether err looks like a transient network failure.
func isTransient(err error) bool {
	// The caller's hard timeout is final, not retryable.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET)
}
