package service

import (
	"context"
	"time"
)

// Pacer inserts the deliberate inter-item delay between remote submissions.
// The delay is a throttle on the remote services, not an error-recovery wait;
// it is injectable so tests run without wall-clock pauses.
type Pacer interface {
	Pause(ctx context.Context, d time.Duration) error
}

type sleepPacer struct{}

// NewSleepPacer returns the production pacer, which sleeps for the requested
// duration unless the context is cancelled first.
func NewSleepPacer() Pacer {
	return sleepPacer{}
}

func (sleepPacer) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NopPacer skips all pauses. Used by tests.
type NopPacer struct{}

func (NopPacer) Pause(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
