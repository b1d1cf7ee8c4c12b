package routes

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"audiopress/config"
	"audiopress/job"
	"audiopress/notify"
	"audiopress/outcome"
	"audiopress/storage"
	"audiopress/token"
)

// Handlers bundles every dependency the HTTP surface needs. main builds one
// and registers it; tests build their own with fakes behind the interfaces.
type Handlers struct {
	Cfg       config.Config
	Root      storage.Root
	Registry  *job.Registry
	Converter *job.Converter
	Artifacts *job.Artifacts
	Engine    job.Engine
	Outcomes  *outcome.Store
	Notifier  *notify.Publisher
	Tokens    *token.Signer
}

// Register wires all routes onto the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/convert", h.ConvertHandler)
	mux.HandleFunc("/download", h.DownloadHandler)
	mux.HandleFunc("/health", h.HealthHandler)
	mux.HandleFunc("/version", h.VersionHandler)
	mux.HandleFunc("/jobs/status", h.JobStatusHandler)
	mux.HandleFunc("/jobs/recent", h.RecentOutcomesHandler)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"success": false,
		"error":   "NotFound",
	})
}
