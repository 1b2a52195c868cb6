// Package retry runs an operation with exponential backoff, used for
// transient failures around process startup such as the first database
// ping racing the container coming up.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Do calls op until it succeeds, the attempts run out, or ctx is done.
// The wait after attempt n is base<<n.
func Do(ctx context.Context, attempts int, base time.Duration, op func() error) error {
	if attempts < 1 {
		return fmt.Errorf("retry: attempts must be positive, got %d", attempts)
	}

	var last error
	for n := 0; n < attempts; n++ {
		if n > 0 {
			wait := base << (n - 1)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		if last = op(); last == nil {
			return nil
		}
	}
	return fmt.Errorf("retry: %d attempts exhausted: %w", attempts, last)
}
