// Package di provides dependency injection for service implementations.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/siteledger/capital/internal/config"
	"github.com/siteledger/capital/internal/modules/analytics"
	"github.com/siteledger/capital/internal/observability/metrics"
)

// InitializeServices creates all services and stores them in the container
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}
	if container.LedgerRepo == nil {
		return fmt.Errorf("ledger repository not initialized")
	}

	// Collectors first so the service records from its first call
	metrics.Init(container.LedgerDB.Conn(), log)

	container.AnalyticsService = analytics.NewService(
		container.LedgerRepo,
		analytics.Config{
			DefaultTerms: cfg.DefaultTerms,
			Policy:       cfg.Policy,
		},
		log,
	)

	log.Info().Msg("All services initialized")

	return nil
}
