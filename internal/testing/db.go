// Package testing provides testing utilities and helpers for the capital engine.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/siteledger/capital/internal/database"
	"github.com/siteledger/capital/internal/modules/ledger"
)

// NewTestDB creates a migrated SQLite database under t.TempDir().
// The returned cleanup closes the connection; it is idempotent and is also
// registered with t.Cleanup, so deferring it is optional.
//
// Supported schema names:
//   - "ledger" - applies ledger_schema.sql with the ledger profile
//   - Unknown names - creates an empty database with the standard profile
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	profile := database.ProfileStandard
	if name == "ledger" {
		profile = database.ProfileLedger
	}

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err, "open test database %s", name)
	require.NoError(t, db.Migrate(), "migrate test database %s", name)

	closed := false
	cleanup := func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	}
	t.Cleanup(cleanup)

	return db, cleanup
}

// NewSeededLedgerDB returns a ledger database already holding ds.
func NewSeededLedgerDB(t *testing.T, ds *ledger.Dataset) *database.DB {
	t.Helper()

	db, _ := NewTestDB(t, "ledger")
	SeedLedger(t, db.Conn(), ds)
	return db
}
