package routes

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

type jobStatusResponse struct {
	JobID  string `json:"job_id"`
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// JobStatusHandler returns the state of a job by id: the live registry
// first, falling back to the outcome store for jobs whose registry entry
// has already been evicted.
func (h *Handlers) JobStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	if j, ok := h.Registry.Get(id); ok {
		writeJSON(w, http.StatusOK, jobStatusResponse{JobID: id, State: j.State.String()})
		return
	}

	if h.Outcomes != nil {
		rec, err := h.Outcomes.Get(id)
		if err != nil {
			log.Error().Err(err).Str("jobId", id).Msg("failed to query outcome store")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if rec != nil {
			writeJSON(w, http.StatusOK, jobStatusResponse{JobID: id, State: rec.Status, Reason: rec.Reason})
			return
		}
	}

	writeNotFound(w)
}

// RecentOutcomesHandler lists terminal job records, for admin/debugging.
func (h *Handlers) RecentOutcomesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.Outcomes == nil {
		writeJSON(w, http.StatusOK, map[string]any{"outcomes": []any{}})
		return
	}

	records, err := h.Outcomes.List()
	if err != nil {
		log.Error().Err(err).Msg("failed to list outcome records")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": records})
}
