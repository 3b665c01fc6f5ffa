package api

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds each dependency check.
const healthCheckTimeout = 2 * time.Second

// Health statuses.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusDisabled = "disabled"
)

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Uptime  string            `json:"uptime"`
	Checks  map[string]string `json:"checks"`
}

// handleHealth reports liveness plus the state of optional stores.
// Any failing check answers 503 so load balancers can take the relay out.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  statusOK,
		Version: s.version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
		Checks: map[string]string{
			"database": statusDisabled,
			"influxdb": statusDisabled,
		},
	}

	if s.db != nil {
		resp.Checks["database"] = s.check(r.Context(), s.db.HealthCheck)
	}
	if s.influx != nil {
		resp.Checks["influxdb"] = s.check(r.Context(), s.influx.HealthCheck)
	}

	status := http.StatusOK
	for _, v := range resp.Checks {
		if v != statusOK && v != statusDisabled {
			resp.Status = statusDegraded
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}

func (s *Server) check(ctx context.Context, fn func(context.Context) error) string {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		return "error"
	}
	return statusOK
}
