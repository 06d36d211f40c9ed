package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/siteledger/capital/internal/database"
	"github.com/siteledger/capital/internal/di"
	"github.com/siteledger/capital/internal/scheduler"
)

// SystemHandlers handles system-wide monitoring and operations
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	ledgerDB    *database.DB

	// Jobs available for manual triggering
	platformSnapshotJob scheduler.Job
	walCheckpointJob    scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	ledgerDB *database.DB,
	jobs *di.JobInstances,
) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		ledgerDB:    ledgerDB,
	}
	if jobs != nil {
		if jobs.RefreshPlatformSnapshot != nil {
			h.platformSnapshotJob = jobs.RefreshPlatformSnapshot
		}
		if jobs.CheckWALCheckpoints != nil {
			h.walCheckpointJob = jobs.CheckWALCheckpoints
		}
	}
	return h
}

// SystemStatusResponse represents system status
type SystemStatusResponse struct {
	Status           string  `json:"status"`
	UptimeSeconds    int64   `json:"uptime_seconds"`
	GoVersion        string  `json:"go_version"`
	Goroutines       int     `json:"goroutines"`
	CPUPercent       float64 `json:"cpu_percent"`
	MemoryPercent    float64 `json:"memory_percent"`
	DiskFreeMB       float64 `json:"disk_free_mb"`
	LedgerSizeMB     float64 `json:"ledger_size_mb"`
	LedgerWALMB      float64 `json:"ledger_wal_mb"`
	TransactionCount int     `json:"transaction_count"`
	PendingCount     int     `json:"pending_count"`
}

// DatabaseStatsResponse represents database statistics
type DatabaseStatsResponse struct {
	Name          string           `json:"name"`
	Path          string           `json:"path"`
	Profile       string           `json:"profile"`
	SizeMB        float64          `json:"size_mb"`
	WALSizeMB     float64          `json:"wal_size_mb"`
	PageCount     int64            `json:"page_count"`
	PageSize      int64            `json:"page_size"`
	FreelistCount int64            `json:"freelist_count"`
	TableRows     map[string]int64 `json:"table_rows"`
	Integrity     string           `json:"integrity"`
	LastChecked   string           `json:"last_checked"`
}

const bytesPerMB = 1024 * 1024

// HandleSystemStatus returns process, host and ledger status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		DiskFreeMB:    h.getDiskFree(),
	}

	if h.ledgerDB != nil {
		if stats, err := h.ledgerDB.GetStats(r.Context()); err == nil {
			response.LedgerSizeMB = float64(stats.SizeBytes) / bytesPerMB
			response.LedgerWALMB = float64(stats.WALSizeBytes) / bytesPerMB
		} else {
			h.log.Warn().Err(err).Msg("Failed to get ledger database stats")
			response.Status = "degraded"
		}

		err := h.ledgerDB.Conn().QueryRowContext(r.Context(), `
			SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0)
			FROM capital_transactions
		`).Scan(&response.TransactionCount, &response.PendingCount)
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to count capital transactions")
			response.Status = "degraded"
		}
	}

	h.writeJSON(w, response)
}

// HandleDatabaseStats returns ledger database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	if h.ledgerDB == nil {
		http.Error(w, "Ledger database not available", http.StatusServiceUnavailable)
		return
	}

	stats, err := h.ledgerDB.GetStats(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get ledger database stats")
		http.Error(w, "Failed to get database stats", http.StatusInternalServerError)
		return
	}

	integrity := "ok"
	if err := h.ledgerDB.HealthCheck(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Ledger integrity check failed")
		integrity = err.Error()
	}

	response := DatabaseStatsResponse{
		Name:          h.ledgerDB.Name(),
		Path:          h.ledgerDB.Path(),
		Profile:       string(h.ledgerDB.Profile()),
		SizeMB:        float64(stats.SizeBytes) / bytesPerMB,
		WALSizeMB:     float64(stats.WALSizeBytes) / bytesPerMB,
		PageCount:     stats.PageCount,
		PageSize:      stats.PageSize,
		FreelistCount: stats.FreelistCount,
		TableRows:     stats.TableRows,
		Integrity:     integrity,
		LastChecked:   time.Now().Format(time.RFC3339),
	}

	h.writeJSON(w, response)
}

// HandleTriggerPlatformSnapshot runs the platform snapshot job immediately
// POST /api/jobs/platform-snapshot
func (h *SystemHandlers) HandleTriggerPlatformSnapshot(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, h.platformSnapshotJob, "Platform snapshot")
}

// HandleTriggerWALCheckpoint runs the WAL checkpoint check immediately
// POST /api/jobs/wal-checkpoint
func (h *SystemHandlers) HandleTriggerWALCheckpoint(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, h.walCheckpointJob, "WAL checkpoint check")
}

func (h *SystemHandlers) runJob(w http.ResponseWriter, job scheduler.Job, label string) {
	if job == nil {
		h.writeJSON(w, map[string]string{"status": "error", "message": label + " job not registered"})
		return
	}

	h.log.Info().Str("job", job.Name()).Msg("Manual job triggered")
	if err := job.Run(); err != nil {
		h.log.Error().Err(err).Str("job", job.Name()).Msg("Manual job failed")
		http.Error(w, label+" failed", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, map[string]string{"status": "success", "message": label + " completed successfully"})
}

// getSystemStats calculates CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// Short sampling interval keeps the status call responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	// Get memory statistics (instant, no blocking)
	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// getDiskFree returns free space on the data directory's filesystem in MB
func (h *SystemHandlers) getDiskFree() float64 {
	dir := h.dataDir
	if dir == "" {
		return 0
	}
	if _, err := os.Stat(dir); err != nil {
		dir = filepath.Dir(dir)
	}

	usage, err := disk.Usage(dir)
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dir).Msg("Failed to get disk usage")
		return 0
	}
	return float64(usage.Free) / bytesPerMB
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
