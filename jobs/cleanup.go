package jobs

import (
	"context"
	"time"
)

// Sweeper deletes abandoned orders and reports how many it removed.
type Sweeper interface {
	SweepAbandoned(ctx context.Context) (int, error)
}

// RegisterCleanup schedules the abandoned-order sweep shortly after boot
// and then every interval.
func RegisterCleanup(s *Scheduler, sweeper Sweeper, initialDelay, interval time.Duration) {
	task := func(ctx context.Context) error {
		_, err := sweeper.SweepAbandoned(ctx)
		return err
	}
	s.Once("cleanup-initial", initialDelay, task)
	s.Every("cleanup", interval, task)
}
