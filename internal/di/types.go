/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"github.com/siteledger/capital/internal/database"
	"github.com/siteledger/capital/internal/modules/analytics"
	"github.com/siteledger/capital/internal/modules/ledger"
	"github.com/siteledger/capital/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: ledger.db only; the engine reads it and never writes
 * - Repositories: ledger.Repository over capital_transactions and its reference tables
 * - Services: analytics.Service, recomputing every view from one dataset fetch
 */
type Container struct {
	// Databases
	LedgerDB *database.DB

	// Repositories
	LedgerRepo *ledger.Repository

	// Services
	AnalyticsService *analytics.Service
}

// Close releases the container's databases. Safe on a partially built container.
func (c *Container) Close() error {
	if c == nil || c.LedgerDB == nil {
		return nil
	}
	return c.LedgerDB.Close()
}

// JobInstances holds the background jobs so the server can trigger them manually
type JobInstances struct {
	RefreshPlatformSnapshot *scheduler.RefreshPlatformSnapshotJob
	CheckWALCheckpoints     *scheduler.CheckWALCheckpointsJob
}
