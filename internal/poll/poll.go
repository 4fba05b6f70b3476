// Package poll repeats a status check until a long-running job settles.
package poll

import (
	"context"
	"time"
)

// Until calls check immediately and then every interval until it reports
// done, returns an error, or ctx is cancelled.
func Until(ctx context.Context, interval time.Duration, check func(context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := check(ctx)
		if err != nil || done {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
