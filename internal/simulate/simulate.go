// Package simulate implements the artificial delay that stands in for a
// network round trip. A zero delay makes every store operation synchronous,
// which is what the tests inject.
package simulate

import (
	"context"
	"time"
)

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
