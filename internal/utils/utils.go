// Package utils holds small helpers shared across commands.
package utils

import (
	"context"
	"time"
)

// WaitFor blocks for d or until ctx is cancelled, whichever comes first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
