// Package metrics registers the engine's Prometheus collectors.
// Every helper is a no-op until Init has run, so packages can record unconditionally.
package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	metricPrefix = "capital_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	degradedRecords *prometheus.CounterVec
	solverOutcomes  *prometheus.CounterVec
	solverIters     prometheus.Histogram

	viewTotal   *prometheus.CounterVec
	viewLatency *prometheus.HistogramVec

	exportTotal *prometheus.CounterVec

	platformFigures *prometheus.GaugeVec
	platformCounts  *prometheus.GaugeVec
	snapshotTotal   *prometheus.CounterVec
)

// Init registers collectors with the default registry. Safe to call more than once.
func Init(ledgerDB *sql.DB, log zerolog.Logger) {
	registerOnce.Do(func() {
		degradedRecords = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "degraded_records_total",
				Help: "Ledger records coerced or skipped during aggregation, by reason",
			},
			[]string{"reason"},
		)
		solverOutcomes = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "xirr_solves_total",
				Help: "XIRR solves by stop reason",
			},
			[]string{"reason"},
		)
		solverIters = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "xirr_iterations",
				Help:    "Newton-Raphson iterations per XIRR solve",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 100},
			},
		)

		viewTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "view_requests_total",
				Help: "Analytics view computations by view and result",
			},
			[]string{"view", "result"},
		)
		viewLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "view_latency_seconds",
				Help:    "Analytics view latency in seconds, fetch included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"view", "result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Report exports by format and result",
			},
			[]string{"format", "result"},
		)

		platformFigures = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "platform_amount",
				Help: "Platform-wide money figures from the last snapshot",
			},
			[]string{"figure"},
		)
		platformCounts = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "platform_entities",
				Help: "Platform-wide entity counts from the last snapshot",
			},
			[]string{"entity"},
		)
		snapshotTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "snapshot_runs_total",
				Help: "Scheduled platform snapshot runs by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			degradedRecords,
			solverOutcomes,
			solverIters,
			viewTotal,
			viewLatency,
			exportTotal,
			platformFigures,
			platformCounts,
			snapshotTotal,
		)

		if ledgerDB != nil {
			registerDBMetrics(ledgerDB, log)
		}
	})
}

func registerDBMetrics(db *sql.DB, log zerolog.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "ledger_pending_transactions",
			Help: "Capital transactions still pending",
		},
		func() float64 {
			return queryCount(db, log, "SELECT COUNT(*) FROM capital_transactions WHERE status = 'pending'")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "ledger_transactions",
			Help: "Capital transactions in the ledger",
		},
		func() float64 {
			return queryCount(db, log, "SELECT COUNT(*) FROM capital_transactions")
		},
	))
}

func queryCount(db *sql.DB, log zerolog.Logger, query string) float64 {
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		log.Warn().Err(err).Msg("metrics query failed")
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}

// AddDegraded adds n to the degraded-record counter for a reason.
func AddDegraded(reason string, n int) {
	if n <= 0 {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	if degradedRecords != nil {
		degradedRecords.WithLabelValues(reason).Add(float64(n))
	}
}

// ObserveSolve records one XIRR solve.
func ObserveSolve(reason string, iterations int) {
	if reason == "" {
		reason = "unknown"
	}
	if solverOutcomes != nil {
		solverOutcomes.WithLabelValues(reason).Inc()
	}
	if solverIters != nil && iterations > 0 {
		solverIters.Observe(float64(iterations))
	}
}

// ObserveView records view latency and result.
func ObserveView(view, result string, duration time.Duration) {
	if view == "" {
		view = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if viewTotal != nil {
		viewTotal.WithLabelValues(view, result).Inc()
	}
	if viewLatency != nil {
		viewLatency.WithLabelValues(view, result).Observe(duration.Seconds())
	}
}

// IncExport increments the export counter.
func IncExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
}

// SetPlatformFigure sets a platform money gauge.
func SetPlatformFigure(figure string, value float64) {
	if platformFigures != nil {
		platformFigures.WithLabelValues(figure).Set(value)
	}
}

// SetPlatformCount sets a platform cardinality gauge.
func SetPlatformCount(entity string, value int) {
	if platformCounts != nil {
		platformCounts.WithLabelValues(entity).Set(float64(value))
	}
}

// IncSnapshot increments the scheduled snapshot counter.
func IncSnapshot(result string) {
	if result == "" {
		result = resultSuccess
	}
	if snapshotTotal != nil {
		snapshotTotal.WithLabelValues(result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
