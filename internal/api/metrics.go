package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/gray-logic-relay/internal/relay"
)

// SystemMetrics is the body of GET /api/v1/metrics.
type SystemMetrics struct {
	Uptime   string                `json:"uptime"`
	Runtime  RuntimeMetrics        `json:"runtime"`
	Requests relay.CounterSnapshot `json:"requests"`
	Database *DatabaseMetrics      `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines int    `json:"goroutines"`
	HeapMB     uint64 `json:"heap_mb"`
	SysMB      uint64 `json:"sys_mb"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
}

// DatabaseMetrics contains SQLite connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
	WaitDurationMS  int64 `json:"wait_duration_ms"`
}

// handleMetrics returns runtime, request and database statistics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	metrics := SystemMetrics{
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
		Runtime: RuntimeMetrics{
			Goroutines: runtime.NumGoroutine(),
			HeapMB:     mem.HeapAlloc / 1024 / 1024,
			SysMB:      mem.Sys / 1024 / 1024,
			NumGC:      mem.NumGC,
			GoVersion:  runtime.Version(),
		},
		Requests: s.counters.Snapshot(),
	}

	if s.db != nil {
		stats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: stats.OpenConnections,
			InUse:           stats.InUse,
			Idle:            stats.Idle,
			WaitCount:       stats.WaitCount,
			WaitDurationMS:  stats.WaitDuration.Milliseconds(),
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
