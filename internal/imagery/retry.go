package imagery

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultAttempts     = 5
	defaultQueryTimeout = 90 * time.Second
	baseBackoff         = 2 * time.Second
)

// withRetry runs fn with a per-attempt timeout and exponential backoff
// between attempts. The remote boundary is the dominant failure and latency
// source, so every platform call goes through here.
func withRetry(ctx context.Context, attempts int, timeout time.Duration, fn func(ctx context.Context) error) error {
	var err error
	delay := baseBackoff
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err = fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < attempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}
