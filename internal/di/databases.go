// Package di provides dependency injection for database connections.
package di

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/siteledger/capital/internal/config"
	"github.com/siteledger/capital/internal/database"
)

// InitializeDatabases opens ledger.db and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// ledger.db - capital transactions plus requests, line items, investors, projects, contractors
	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
	}
	container.LedgerDB = ledgerDB

	if err := ledgerDB.Migrate(); err != nil {
		ledgerDB.Close()
		return nil, fmt.Errorf("failed to apply schema to %s: %w", ledgerDB.Name(), err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	event := log.Info().Str("path", ledgerDB.Path())
	if stats, err := ledgerDB.GetStats(ctx); err == nil {
		event = event.
			Int64("transactions", stats.TableRows["capital_transactions"]).
			Int64("purchase_requests", stats.TableRows["purchase_requests"]).
			Int64("investors", stats.TableRows["investors"])
	} else {
		log.Warn().Err(err).Msg("Failed to read ledger stats")
	}
	event.Msg("Ledger database initialized and schema applied")

	return container, nil
}
