package routes

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"audiopress/job"
	"audiopress/notify"
)

// DownloadHandler streams a converted artifact exactly once. Whichever
// terminal trigger fires first — full delivery, a write error, or the
// consumer disconnecting — releases the artifact; the release is
// idempotent so the racing triggers are harmless.
func (h *Handlers) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, err := h.Tokens.Verify(r.URL.Query().Get("token"))
	if err != nil {
		log.Debug().Err(err).Msg("download token rejected")
		writeNotFound(w)
		return
	}
	jobID := claims.JobID

	handle, err := h.Artifacts.Open(jobID)
	if err != nil {
		if !errors.Is(err, job.ErrNotFound) {
			log.Error().Err(err).Str("jobId", jobID).Msg("failed to open artifact")
		}
		writeNotFound(w)
		return
	}
	defer handle.Close()

	displayName := downloadName(r.URL.Query().Get("name"), claims.OriginalName)

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.FormatInt(handle.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", displayName))

	// Disconnect trigger: the request context closes when the consumer
	// goes away mid-stream.
	streamDone := make(chan struct{})
	go func() {
		select {
		case <-r.Context().Done():
			log.Info().Str("jobId", jobID).Msg("consumer disconnected during streaming")
			h.Artifacts.Release(jobID)
		case <-streamDone:
		}
	}()

	_, copyErr := io.Copy(w, handle.File)
	close(streamDone)

	// Delivery and write-error triggers share this path.
	h.Artifacts.Release(jobID)

	if copyErr != nil {
		// The response is already committed; nothing to send, only log.
		log.Warn().Err(copyErr).Str("jobId", jobID).Msg("streaming ended early")
		return
	}

	h.Notifier.Publish(r.Context(), jobID, notify.StatusCompleted)
	log.Info().Str("jobId", jobID).Str("name", displayName).Msg("artifact delivered")
}

// downloadName picks the display name for the disposition header, always
// ending in the fixed output extension. The override, when present, wins
// over the original name.
func downloadName(override, originalName string) string {
	name := override
	if name == "" {
		name = originalName
	}
	return outputName(name)
}
