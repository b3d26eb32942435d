package health

import (
	"context"
	"time"
)

// Clock abstracts time so the retry protocol can be tested without
// real waiting.
type Clock interface {
	Now() time.Time

	// Sleep blocks for d or until ctx is cancelled, returning the
	// context error on cancellation.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the wall-clock implementation.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
