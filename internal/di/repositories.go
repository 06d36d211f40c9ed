// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/siteledger/capital/internal/modules/ledger"
)

// InitializeRepositories creates all repositories and stores them in the container
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}
	if container.LedgerDB == nil {
		return fmt.Errorf("ledger database not initialized")
	}

	// Ledger repository (needs ledgerDB)
	container.LedgerRepo = ledger.NewRepository(
		container.LedgerDB.Conn(),
		log,
	)

	log.Info().Msg("All repositories initialized")

	return nil
}
