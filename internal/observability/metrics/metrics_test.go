package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingpkg "github.com/siteledger/capital/internal/testing"
)

func TestHelpers_RecordAfterInit(t *testing.T) {
	Init(nil, zerolog.Nop())
	Init(nil, zerolog.Nop()) // second call is a no-op

	before := testutil.ToFloat64(degradedRecords.WithLabelValues("coerced_amount"))
	AddDegraded("coerced_amount", 3)
	AddDegraded("coerced_amount", 0)
	assert.Equal(t, before+3, testutil.ToFloat64(degradedRecords.WithLabelValues("coerced_amount")))

	before = testutil.ToFloat64(solverOutcomes.WithLabelValues("converged"))
	ObserveSolve("converged", 5)
	assert.Equal(t, before+1, testutil.ToFloat64(solverOutcomes.WithLabelValues("converged")))

	before = testutil.ToFloat64(viewTotal.WithLabelValues("projects", ResultError))
	ObserveView("projects", ResultError, 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(viewTotal.WithLabelValues("projects", ResultError)))

	before = testutil.ToFloat64(exportTotal.WithLabelValues("xlsx", ResultSuccess))
	IncExport("xlsx", "")
	assert.Equal(t, before+1, testutil.ToFloat64(exportTotal.WithLabelValues("xlsx", ResultSuccess)))

	SetPlatformFigure("total_due", 1184500)
	assert.Equal(t, 1184500.0, testutil.ToFloat64(platformFigures.WithLabelValues("total_due")))

	SetPlatformCount("investors", 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(platformCounts.WithLabelValues("investors")))

	before = testutil.ToFloat64(snapshotTotal.WithLabelValues(ResultSuccess))
	IncSnapshot("")
	assert.Equal(t, before+1, testutil.ToFloat64(snapshotTotal.WithLabelValues(ResultSuccess)))
}

func TestQueryCount(t *testing.T) {
	db := testingpkg.NewSeededLedgerDB(t, testingpkg.NewPortfolioDataset())

	log := zerolog.Nop()
	assert.Equal(t, 11.0, queryCount(db.Conn(), log, "SELECT COUNT(*) FROM capital_transactions"))
	assert.Equal(t, 1.0, queryCount(db.Conn(), log, "SELECT COUNT(*) FROM capital_transactions WHERE status = 'pending'"))
	assert.Equal(t, 0.0, queryCount(db.Conn(), log, "SELECT COUNT(*) FROM no_such_table"), "query failures read as zero")
}

func TestQueryCount_ClosedDB(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "ledger")
	conn := db.Conn()
	cleanup()

	require.NotPanics(t, func() {
		assert.Equal(t, 0.0, queryCount(conn, zerolog.Nop(), "SELECT 1"))
	})
}
