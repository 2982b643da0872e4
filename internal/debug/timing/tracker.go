// Package timing records how long named operations take so the CLI can
// report a per-stage summary after a batch.
package timing

import (
	"context"
	"sort"
	"sync"
	"time"

	"screencrop/internal/logger"
)

const component = "TimingTracker"

type timingKey struct{}

type span struct {
	operation string
	start     time.Time
}

// Stat summarizes every recorded duration of one operation.
type Stat struct {
	Operation string
	Count     int
	Total     time.Duration
	Average   time.Duration
	Max       time.Duration
}

type Tracker struct {
	timings map[string][]time.Duration
	mu      sync.RWMutex
	logger  logger.Logger
}

func NewTracker(log logger.Logger) *Tracker {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	return &Tracker{
		timings: make(map[string][]time.Duration),
		logger:  log,
	}
}

// StartTiming derives a context from parent that carries the start of
// operation. Pass it to EndTiming once the operation returns.
func (tt *Tracker) StartTiming(parent context.Context, operation string) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, timingKey{}, span{operation: operation, start: time.Now()})
}

// EndTiming records the elapsed time of the span in ctx and returns it.
// Contexts not produced by StartTiming are ignored.
func (tt *Tracker) EndTiming(ctx context.Context) time.Duration {
	if ctx == nil {
		return 0
	}

	s, ok := ctx.Value(timingKey{}).(span)
	if !ok {
		return 0
	}

	duration := time.Since(s.start)

	tt.mu.Lock()
	tt.timings[s.operation] = append(tt.timings[s.operation], duration)
	tt.mu.Unlock()

	tt.logger.Debug(component, "operation finished", map[string]interface{}{
		"operation":   s.operation,
		"duration_ms": float64(duration.Microseconds()) / 1000,
	})
	return duration
}

// Summary returns one Stat per operation, sorted by operation name.
func (tt *Tracker) Summary() []Stat {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	stats := make([]Stat, 0, len(tt.timings))
	for operation, timings := range tt.timings {
		st := Stat{Operation: operation, Count: len(timings)}
		for _, d := range timings {
			st.Total += d
			if d > st.Max {
				st.Max = d
			}
		}
		if st.Count > 0 {
			st.Average = st.Total / time.Duration(st.Count)
		}
		stats = append(stats, st)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Operation < stats[j].Operation })
	return stats
}
