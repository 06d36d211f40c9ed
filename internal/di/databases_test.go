package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteledger/capital/internal/config"
)

func TestInitializeDatabases(t *testing.T) {
	// Create temporary directory for test databases
	tmpDir := t.TempDir()

	cfg := &config.Config{
		DataDir: tmpDir,
	}

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container)
	defer container.Close()

	assert.NotNil(t, container.LedgerDB)
	assert.FileExists(t, filepath.Join(tmpDir, "ledger.db"))

	// Schema applied: every table the repository reads exists
	for _, table := range []string{"capital_transactions", "purchase_requests", "purchase_request_items", "investors", "projects", "contractors"} {
		var name string
		err := container.LedgerDB.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestInitializeDatabases_InvalidPath(t *testing.T) {
	// A regular file where the data directory should be
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	cfg := &config.Config{
		DataDir: filepath.Join(blocker, "data"),
	}

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, container)
}

func TestContainer_CloseIsNilSafe(t *testing.T) {
	var nilContainer *Container
	assert.NoError(t, nilContainer.Close())
	assert.NoError(t, (&Container{}).Close())
}
