package pipeline

import (
	"context"
	"time"
)

// RetryWithBackoff runs operation up to maxAttempts times, doubling the
// delay between attempts starting from baseDelay. It returns nil on the
// first success, the context error if ctx is cancelled while waiting, and
// the last operation error once the budget is exhausted. A permanent error
// stops the loop immediately.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	delay := baseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		lastErr = err

		if attempt < maxAttempts {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}
	}

	return lastErr
}
