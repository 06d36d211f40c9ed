// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/siteledger/capital/internal/config"
	"github.com/siteledger/capital/internal/scheduler"
)

// walCheckSchedule is fixed; only the snapshot cadence is configurable
const walCheckSchedule = "@every 15m"

// RegisterJobs creates the background jobs and registers them with the scheduler.
// sched may be nil, in which case jobs are created for manual triggering only.
func RegisterJobs(container *Container, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.AnalyticsService == nil {
		return nil, fmt.Errorf("services not initialized")
	}

	instances := &JobInstances{}

	snapshot := scheduler.NewRefreshPlatformSnapshotJob(container.AnalyticsService)
	snapshot.SetLogger(log.With().Str("job", "refresh_platform_snapshot").Logger())
	instances.RefreshPlatformSnapshot = snapshot

	walCheck := scheduler.NewCheckWALCheckpointsJob(container.LedgerDB)
	walCheck.SetLogger(log.With().Str("job", "check_wal_checkpoints").Logger())
	instances.CheckWALCheckpoints = walCheck

	if sched == nil {
		return instances, nil
	}

	if cfg.SnapshotSchedule != "" {
		if err := sched.AddJob(cfg.SnapshotSchedule, snapshot); err != nil {
			return nil, fmt.Errorf("failed to register snapshot job: %w", err)
		}
	}
	if err := sched.AddJob(walCheckSchedule, walCheck); err != nil {
		return nil, fmt.Errorf("failed to register WAL checkpoint job: %w", err)
	}

	log.Info().Msg("All jobs registered")

	return instances, nil
}
