package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"audiopress/intake"
	"audiopress/job"
	"audiopress/notify"
	"audiopress/outcome"
)

// sniffLen is how much of the payload the validator may inspect when the
// declared media type carries no information.
const sniffLen = 3072

type convertResponse struct {
	Success       bool   `json:"success"`
	DownloadToken string `json:"downloadToken,omitempty"`
	Filename      string `json:"filename,omitempty"`
	OriginalName  string `json:"originalName,omitempty"`
	Size          int64  `json:"size,omitempty"`
	Error         string `json:"error,omitempty"`
	Message       string `json:"message,omitempty"`
}

// ConvertHandler accepts one media payload, runs the full
// validate -> store -> convert cycle and answers with a one-shot download
// token. The request suspends while the engine runs.
func (h *Handlers) ConvertHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Transport-level ceiling; the validator enforces the declared size
	// independently. Slack covers multipart framing overhead.
	r.Body = http.MaxBytesReader(w, r.Body, h.Cfg.MaxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		log.Warn().Err(err).Msg("failed to parse multipart form")
		writeJSON(w, http.StatusRequestEntityTooLarge, convertResponse{Success: false, Error: "TooLarge"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Failed to get file from form", http.StatusBadRequest)
		return
	}
	defer file.Close()

	head := make([]byte, sniffLen)
	n, _ := io.ReadFull(file, head)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	candidate := intake.Candidate{
		OriginalName: header.Filename,
		DeclaredType: header.Header.Get("Content-Type"),
		Size:         header.Size,
		Head:         head[:n],
	}
	if err := intake.Validate(candidate, h.Cfg.MaxUploadBytes); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, convertResponse{
			Success: false,
			Error:   validationCode(err),
		})
		return
	}

	jobID := job.NewID()
	inputPath := h.Root.IntakePath(jobID, header.Filename)

	if err := saveUpload(file, inputPath); err != nil {
		log.Error().Err(err).Str("jobId", jobID).Msg("failed to save intake file")
		http.Error(w, "Failed to save file", http.StatusInternalServerError)
		return
	}

	if err := h.Registry.Create(jobID, header.Filename, header.Size, inputPath); err != nil {
		log.Error().Err(err).Str("jobId", jobID).Msg("failed to register job")
		os.Remove(inputPath)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Info().Str("jobId", jobID).Str("name", header.Filename).Int64("size", header.Size).Msg("job accepted")
	h.Notifier.Publish(r.Context(), jobID, notify.StatusConverting)

	// Conversion and download are independent cancellation domains: once
	// the engine starts it runs to completion even if this request's
	// client goes away.
	_, err = h.Converter.Convert(context.WithoutCancel(r.Context()), jobID)
	if err != nil {
		h.recordOutcome(jobID, header.Filename, header.Size, outcome.StatusFailed, err.Error())
		h.Notifier.Publish(r.Context(), jobID, notify.StatusFailed)

		log.Error().Err(err).Str("jobId", jobID).Msg("conversion failed")
		writeJSON(w, http.StatusInternalServerError, convertResponse{
			Success: false,
			Error:   "ConversionFailed",
			Message: err.Error(),
		})
		return
	}

	h.recordOutcome(jobID, header.Filename, header.Size, outcome.StatusCompleted, "")
	h.Notifier.Publish(r.Context(), jobID, notify.StatusReady)

	downloadToken, err := h.Tokens.Issue(jobID, header.Filename)
	if err != nil {
		log.Error().Err(err).Str("jobId", jobID).Msg("failed to issue download token")
		h.Artifacts.Release(jobID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Info().Str("jobId", jobID).Msg("conversion ready")
	writeJSON(w, http.StatusOK, convertResponse{
		Success:       true,
		DownloadToken: downloadToken,
		Filename:      outputName(header.Filename),
		OriginalName:  header.Filename,
		Size:          header.Size,
	})
}

func (h *Handlers) recordOutcome(jobID, name string, size int64, status, reason string) {
	if h.Outcomes == nil {
		return
	}
	err := h.Outcomes.Put(outcome.Record{
		JobID:        jobID,
		OriginalName: name,
		Status:       status,
		Reason:       reason,
		Size:         size,
	})
	if err != nil {
		log.Error().Err(err).Str("jobId", jobID).Msg("failed to store outcome record")
	}
}

func validationCode(err error) string {
	if errors.Is(err, intake.ErrTooLarge) {
		return "TooLarge"
	}
	return "UnsupportedKind"
}

func saveUpload(src io.Reader, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// outputName maps the original name onto the fixed output extension.
func outputName(originalName string) string {
	base := filepath.Base(originalName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		base = "audio"
	}
	return base + ".mp3"
}
