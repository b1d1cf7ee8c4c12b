package routes

import (
	"net/http"
	"runtime"
	"time"
)

// Build-time variables (injected by ldflags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var startTime = time.Now()

// HealthResponse reports service and engine health for monitoring.
type HealthResponse struct {
	Status          string    `json:"status"`
	EngineAvailable bool      `json:"engine_available"`
	EngineBin       string    `json:"engine_bin"`
	StoreError      string    `json:"store_error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Version         string    `json:"version"`
	GoVersion       string    `json:"go_version"`
	Uptime          string    `json:"uptime"`
}

// HealthHandler reports whether the external engine binary is present and
// executable, plus outcome store health. Diagnostic only.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := HealthResponse{
		Status:          "healthy",
		EngineAvailable: h.Engine != nil && h.Engine.Available(),
		EngineBin:       h.Cfg.FFmpegBin,
		Timestamp:       time.Now(),
		Version:         version,
		GoVersion:       runtime.Version(),
		Uptime:          time.Since(startTime).Round(time.Second).String(),
	}

	if !resp.EngineAvailable {
		resp.Status = "degraded"
	}
	if h.Outcomes != nil {
		if err := h.Outcomes.CheckHealth(); err != nil {
			resp.Status = "degraded"
			resp.StoreError = err.Error()
		}
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
