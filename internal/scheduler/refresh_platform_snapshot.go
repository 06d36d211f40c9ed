package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/siteledger/capital/internal/observability/metrics"
)

// DefaultSnapshotTimeout bounds one refresh of the platform gauges
const DefaultSnapshotTimeout = 30 * time.Second

// RefreshPlatformSnapshotJob recomputes the platform summary and publishes it as gauges
type RefreshPlatformSnapshotJob struct {
	summaries PlatformSummaryProvider
	timeout   time.Duration
	log       zerolog.Logger
}

// NewRefreshPlatformSnapshotJob creates a new RefreshPlatformSnapshotJob
func NewRefreshPlatformSnapshotJob(summaries PlatformSummaryProvider) *RefreshPlatformSnapshotJob {
	return &RefreshPlatformSnapshotJob{
		summaries: summaries,
		timeout:   DefaultSnapshotTimeout,
		log:       zerolog.Nop(),
	}
}

// SetLogger sets the logger for the job
func (j *RefreshPlatformSnapshotJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *RefreshPlatformSnapshotJob) Name() string {
	return "refresh_platform_snapshot"
}

// Run executes the refresh platform snapshot job
func (j *RefreshPlatformSnapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	summary, err := j.summaries.PlatformSummary(ctx)
	if err != nil {
		metrics.IncSnapshot(metrics.ResultError)
		return fmt.Errorf("failed to compute platform summary: %w", err)
	}

	figures := map[string]float64{
		"total_requested":   summary.TotalRequested.InexactFloat64(),
		"total_funded":      summary.TotalFunded.InexactFloat64(),
		"total_returns":     summary.TotalReturns.InexactFloat64(),
		"outstanding":       summary.Outstanding.InexactFloat64(),
		"platform_fee":      summary.PlatformFee.InexactFloat64(),
		"participation_fee": summary.ParticipationFee.InexactFloat64(),
		"total_due":         summary.TotalDue.InexactFloat64(),
	}
	for figure, value := range figures {
		metrics.SetPlatformFigure(figure, value)
	}

	metrics.SetPlatformCount("requests", summary.RequestCount)
	metrics.SetPlatformCount("investors", summary.InvestorCount)
	metrics.SetPlatformCount("projects", summary.ProjectCount)
	metrics.SetPlatformCount("contractors", summary.ContractorCount)
	metrics.IncSnapshot(metrics.ResultSuccess)

	j.log.Info().
		Str("total_funded", summary.TotalFunded.String()).
		Str("outstanding", summary.Outstanding.String()).
		Int("requests", summary.RequestCount).
		Msg("Platform snapshot refreshed")

	return nil
}
