package tracker

import (
	"context"
	"time"
)

// Retry calls fn up to attempts times, sleeping base*attempt between failures.
// It returns the last error once attempts are exhausted or ctx is done.
func Retry(ctx context.Context, attempts int, base time.Duration, fn func(ctx context.Context, attempt int) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx, attempt); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		timer := time.NewTimer(base * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
