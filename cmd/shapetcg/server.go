package main

import (
	"context"
	"time"

	"github.com/DonQuixuote/shape-tcg/internal/logging"
)

type reaper interface {
	Reap(now time.Time) int
}

// startReaper periodically drops finished battles whose retention expired.
func startReaper(ctx context.Context, battles reaper, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := battles.Reap(now); n > 0 {
					logging.Debug("reaped finished battles", logging.Fields{"count": n})
				}
			}
		}
	}()
}
