package maintenance

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

const defaultSessionSweepInterval = 5 * time.Minute

type SessionSweeper interface {
	SweepSessions(ctx context.Context) (int, error)
}

// StartSessionSweepRoutine drops idle admin sessions until ctx is done.
func StartSessionSweepRoutine(ctx context.Context, sweeper SessionSweeper, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSessionSweepInterval
	}

	runEvery(ctx, interval, func(runCtx context.Context) {
		removed, err := sweeper.SweepSessions(runCtx)
		if err != nil {
			log.Error("Failed to sweep admin sessions", "error", err)
			return
		}
		if removed > 0 {
			log.Debug("Idle admin sessions removed", "count", removed)
		}
	})
}
