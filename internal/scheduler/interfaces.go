package scheduler

import (
	"context"

	"github.com/siteledger/capital/internal/modules/analytics"
)

// PlatformSummaryProvider defines the contract for the platform rollup
// Used by scheduler to enable testing with mocks
type PlatformSummaryProvider interface {
	PlatformSummary(ctx context.Context) (analytics.PlatformSummary, error)
}
