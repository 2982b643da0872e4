package pipeline

import (
	"context"
	"time"
)

// TimingTracker measures pipeline stages. *timing.Tracker satisfies it.
type TimingTracker interface {
	StartTiming(parent context.Context, operation string) context.Context
	EndTiming(ctx context.Context) time.Duration
}

type noopTimer struct{}

func (noopTimer) StartTiming(parent context.Context, _ string) context.Context {
	if parent == nil {
		return context.Background()
	}
	return parent
}

func (noopTimer) EndTiming(context.Context) time.Duration { return 0 }
