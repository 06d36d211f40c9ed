package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// SlowOperationThreshold is the duration above which an operation is logged at warn level
const SlowOperationThreshold = 5 * time.Second

// OperationTimer provides a defer-friendly way to measure operation duration.
// The returned func logs and reports the elapsed time.
//
// Usage:
//
//	stop := utils.OperationTimer("project_views", log)
//	defer func() { metrics.ObserveView("projects", result, stop()) }()
func OperationTimer(operation string, log zerolog.Logger) func() time.Duration {
	start := time.Now()

	return func() time.Duration {
		duration := time.Since(start)

		log.Debug().
			Str("operation", operation).
			Dur("duration_ms", duration).
			Msg("Operation completed")

		if duration > SlowOperationThreshold {
			log.Warn().
				Str("operation", operation).
				Dur("duration", duration).
				Msg("Slow operation detected")
		}
		return duration
	}
}

// MeasureDBQuery measures database query performance
func MeasureDBQuery(queryName string, log zerolog.Logger) func(rows int) {
	start := time.Now()

	return func(rows int) {
		duration := time.Since(start)

		log.Debug().
			Str("query", queryName).
			Dur("duration_ms", duration).
			Int("rows", rows).
			Msg("Database query completed")

		if duration > SlowOperationThreshold {
			log.Warn().
				Str("query", queryName).
				Dur("duration", duration).
				Int("rows", rows).
				Msg("Slow database query detected")
		}
	}
}
