package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/siteledger/capital/internal/database"
)

// walFrameWarnThreshold is the WAL size, in frames, above which a warning is logged
const walFrameWarnThreshold = 1000

const walCheckTimeout = 10 * time.Second

// CheckWALCheckpointsJob monitors WAL checkpoint status of the ledger database
type CheckWALCheckpointsJob struct {
	log      zerolog.Logger
	ledgerDB *database.DB
}

// NewCheckWALCheckpointsJob creates a new CheckWALCheckpointsJob
func NewCheckWALCheckpointsJob(ledgerDB *database.DB) *CheckWALCheckpointsJob {
	return &CheckWALCheckpointsJob{
		log:      zerolog.Nop(),
		ledgerDB: ledgerDB,
	}
}

// SetLogger sets the logger for the job
func (j *CheckWALCheckpointsJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *CheckWALCheckpointsJob) Name() string {
	return "check_wal_checkpoints"
}

// Run executes the check WAL checkpoints job.
// Failures are logged, not returned: a busy checkpoint is retried on the next run.
func (j *CheckWALCheckpointsJob) Run() error {
	if j.ledgerDB == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), walCheckTimeout)
	defer cancel()

	status, err := j.ledgerDB.WALCheckpoint(ctx, "PASSIVE")
	if err != nil {
		j.log.Warn().
			Err(err).
			Str("database", j.ledgerDB.Name()).
			Msg("Failed to check WAL checkpoint")
		return nil
	}

	if status.LogFrames > walFrameWarnThreshold {
		j.log.Warn().
			Str("database", j.ledgerDB.Name()).
			Int("wal_frames", status.LogFrames).
			Int("checkpointed", status.Checkpointed).
			Bool("busy", status.Busy).
			Msg("WAL file is large, checkpoint may be needed")
	} else {
		j.log.Debug().
			Str("database", j.ledgerDB.Name()).
			Int("wal_frames", status.LogFrames).
			Msg("WAL checkpoint status OK")
	}

	return nil
}
