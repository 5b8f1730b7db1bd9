package server

import (
	"context"
	"time"

	"ganttline/internal/event"
)

// DefaultTickInterval is how often the current-time marker advances while serving.
const DefaultTickInterval = time.Minute

// StartClock publishes a clock tick on bus every interval until ctx is done.
func StartClock(ctx context.Context, bus *event.Bus, interval time.Duration, now func() time.Time) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if now == nil {
		now = time.Now
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				bus.Publish(event.TickEvent{Now: now()})
			}
		}
	}()
}
