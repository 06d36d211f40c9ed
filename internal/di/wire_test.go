package di

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteledger/capital/internal/config"
	"github.com/siteledger/capital/internal/modules/fees"
	"github.com/siteledger/capital/internal/scheduler"
	testingpkg "github.com/siteledger/capital/internal/testing"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:          t.TempDir(),
		SnapshotSchedule: "@every 5m",
		DefaultTerms:     fees.DefaultTerms(),
		Policy:           fees.DefaultPolicy(),
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.Nop()

	container, jobs, err := Wire(cfg, log, scheduler.New(log))
	require.NoError(t, err)
	require.NotNil(t, container)
	require.NotNil(t, jobs)
	t.Cleanup(func() { container.Close() })

	// Verify container is fully populated
	assert.NotNil(t, container.LedgerDB)
	assert.NotNil(t, container.LedgerRepo)
	assert.NotNil(t, container.AnalyticsService)

	// Verify jobs are registered
	assert.NotNil(t, jobs.RefreshPlatformSnapshot)
	assert.NotNil(t, jobs.CheckWALCheckpoints)
}

func TestWire_ServiceReadsLedger(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	testingpkg.SeedLedger(t, container.LedgerDB.Conn(), testingpkg.NewPortfolioDataset())

	views, err := container.AnalyticsService.ProjectViews(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "proj-1", views[0].ProjectID)

	assert.NoError(t, jobs.RefreshPlatformSnapshot.Run())
	assert.NoError(t, jobs.CheckWALCheckpoints.Run())
}

func TestWire_ConfiguredTermsReachService(t *testing.T) {
	cfg := testConfig(t)
	cfg.DefaultTerms.PlatformFeeRate = testingpkg.Dec("0.01")

	container, _, err := Wire(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	assert.True(t, container.AnalyticsService.Config().DefaultTerms.PlatformFeeRate.Equal(testingpkg.Dec("0.01")))
}

func TestRegisterJobs_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.Nop()

	container, _, err := Wire(cfg, log, nil)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	cfg.SnapshotSchedule = "whenever"
	_, err = RegisterJobs(container, cfg, scheduler.New(log), log)
	assert.Error(t, err)
}

func TestRegisterJobs_SnapshotDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.SnapshotSchedule = ""
	log := zerolog.Nop()

	container, jobs, err := Wire(cfg, log, scheduler.New(log))
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	assert.NotNil(t, jobs.RefreshPlatformSnapshot, "still available for manual triggering")
}

func TestInitialize_RequiresPreviousSteps(t *testing.T) {
	log := zerolog.Nop()

	assert.Error(t, InitializeRepositories(nil, log))
	assert.Error(t, InitializeRepositories(&Container{}, log))
	assert.Error(t, InitializeServices(&Container{}, testConfig(t), log))

	_, err := RegisterJobs(&Container{}, testConfig(t), nil, log)
	assert.Error(t, err)
}
