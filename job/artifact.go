package job

import (
	"errors"
	"os"

	"github.com/rs/zerolog/log"
)

// ErrNotFound means no Ready artifact exists for the id: it was never
// created, is already being streamed, or has been released. A normal
// outcome of the one-shot contract, not a failure.
var ErrNotFound = errors.New("no artifact available")

// Handle is an open artifact ready to be streamed once.
type Handle struct {
	File         *os.File
	OriginalName string
	Size         int64
}

// Close closes the underlying file. It does not release the artifact.
func (h *Handle) Close() error {
	return h.File.Close()
}

// Artifacts owns the one-shot delivery contract for conversion outputs:
// each artifact is streamed at most once and removed exactly once, by
// whichever terminal trigger fires first.
type Artifacts struct {
	reg *Registry
}

// NewArtifacts builds the lifecycle manager over the shared registry.
func NewArtifacts(reg *Registry) *Artifacts {
	return &Artifacts{reg: reg}
}

// Open claims the artifact for streaming. Only a Ready job can be opened;
// a job already Streaming or Completed yields ErrNotFound even if the file
// still exists on disk, which is what prevents re-download races.
func (a *Artifacts) Open(id string) (*Handle, error) {
	a.reg.mu.Lock()
	j, ok := a.reg.jobs[id]
	if !ok || j.State != StateReady {
		a.reg.mu.Unlock()
		return nil, ErrNotFound
	}
	// Claim before touching the filesystem so a concurrent Open loses the
	// race inside the lock, not on disk.
	if err := a.reg.transitionLocked(id, StateStreaming); err != nil {
		a.reg.mu.Unlock()
		return nil, ErrNotFound
	}
	path := j.OutputPath
	originalName := j.OriginalName
	a.reg.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Str("jobId", id).Str("path", path).Msg("ready artifact could not be opened")
		a.Release(id)
		return nil, ErrNotFound
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		a.Release(id)
		return nil, ErrNotFound
	}

	return &Handle{File: f, OriginalName: originalName, Size: info.Size()}, nil
}

// Release deletes the artifact and completes the job. The first caller
// wins; later calls are an expected race between delivery, error, and
// disconnect triggers and are logged, not escalated. Deletion is
// best-effort and never alters a response already sent.
func (a *Artifacts) Release(id string) {
	a.reg.mu.Lock()
	j, ok := a.reg.jobs[id]
	if !ok {
		a.reg.mu.Unlock()
		log.Debug().Str("jobId", id).Msg("release for unknown job ignored")
		return
	}
	if j.State != StateReady && j.State != StateStreaming {
		a.reg.mu.Unlock()
		log.Debug().Str("jobId", id).Str("state", j.State.String()).Msg("artifact already released")
		return
	}
	if err := a.reg.transitionLocked(id, StateCompleted); err != nil {
		a.reg.mu.Unlock()
		log.Debug().Err(err).Str("jobId", id).Msg("release lost the completion race")
		return
	}
	path := j.OutputPath
	a.reg.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Error().Err(err).Str("jobId", id).Str("path", path).Msg("failed to delete artifact")
	}
}
