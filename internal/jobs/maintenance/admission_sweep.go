package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"clansite/internal/domain"
	"clansite/internal/support"
)

const (
	envSweepInterval = "ADMISSION_SWEEP_INTERVAL"

	defaultSweepInterval  = 30 * time.Second
	admissionSweepLockKey = "clansite:leader:admission_sweep"
)

// AdmissionSweeper is the part of the admission engine the sweep drives.
type AdmissionSweeper interface {
	Cleanup(ctx context.Context, now time.Time) (domain.CleanupResult, error)
	Now() time.Time
}

// StartAdmissionSweepRoutine bounds the admission tables until ctx is done.
// It sweeps once immediately and then every interval. With a redis client
// only the leader instance sweeps.
func StartAdmissionSweepRoutine(ctx context.Context, sweeper AdmissionSweeper, client *redis.Client, interval time.Duration) {
	if ctx == nil {
		ctx = context.Background()
	}
	if interval <= 0 {
		interval = ResolveSweepInterval()
	}

	err := support.RunWithLeader(ctx, client, admissionSweepLockKey, support.DefaultLeadershipTTL, func(leaderCtx context.Context) {
		runEvery(leaderCtx, interval, func(runCtx context.Context) {
			runAdmissionSweep(runCtx, sweeper)
		})
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Admission sweep routine stopped", "error", err)
	}
}

// ResolveSweepInterval reads ADMISSION_SWEEP_INTERVAL as a Go duration or seconds.
func ResolveSweepInterval() time.Duration {
	return support.GetEnvDuration(envSweepInterval, defaultSweepInterval)
}

func runAdmissionSweep(ctx context.Context, sweeper AdmissionSweeper) {
	start := time.Now()

	result, err := sweeper.Cleanup(ctx, sweeper.Now())
	if err != nil {
		log.Error("Failed to sweep admission tables", "error", err)
		return
	}
	if result.Empty() {
		return
	}

	log.Info(
		"Admission sweep completed",
		"request_logs_removed", result.RequestLogsDeleted,
		"ip_blocks_removed", result.IPBlocksDeleted,
		"manual_blocks_expired", result.ManualBlocksDeactivated,
		"duration", time.Since(start),
	)
}

func runEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
