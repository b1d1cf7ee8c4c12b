package job

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"audiopress/storage"
)

// Engine is the external transcoding process behind a path-in/path-out
// contract.
type Engine interface {
	Extract(ctx context.Context, inputPath, outputPath string) error
	Available() bool
}

// Converter orchestrates one engine invocation per job. The input is
// single-use: whatever the engine reports, the intake file is gone by the
// time Convert returns.
type Converter struct {
	engine Engine
	root   storage.Root
	reg    *Registry
	sem    chan struct{}
}

// NewConverter builds a converter bounding concurrent engine processes to
// maxConcurrent.
func NewConverter(engine Engine, root storage.Root, reg *Registry, maxConcurrent int) *Converter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Converter{
		engine: engine,
		root:   root,
		reg:    reg,
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// Convert runs the engine against a validated job and returns the output
// location. The caller suspends while the engine runs; other jobs make
// progress on their own goroutines. Exactly one invocation happens per job,
// with no automatic retry.
func (c *Converter) Convert(ctx context.Context, jobID string) (string, error) {
	j, ok := c.reg.Get(jobID)
	if !ok {
		return "", &EngineError{Message: "job " + jobID + " not registered"}
	}
	if err := c.reg.Transition(jobID, StateConverting); err != nil {
		return "", err
	}

	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	outputPath := c.root.OutputPath(jobID)
	err := c.engine.Extract(ctx, j.InputPath, outputPath)

	// The input has served its purpose either way.
	removeQuiet(j.InputPath, jobID, "intake file")

	if err != nil {
		removeQuiet(outputPath, jobID, "partial output")
		c.markFailed(jobID)
		return "", err
	}

	// Engine success does not imply a usable file; gate Ready on an
	// explicit post-condition check.
	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() == 0 {
		removeQuiet(outputPath, jobID, "empty output")
		c.markFailed(jobID)
		return "", &EngineError{
			Message: "engine reported success but produced no usable output",
			Err:     statErr,
		}
	}

	c.reg.setOutput(jobID, outputPath)
	if err := c.reg.Transition(jobID, StateReady); err != nil {
		return "", err
	}
	return outputPath, nil
}

func (c *Converter) markFailed(jobID string) {
	if err := c.reg.Transition(jobID, StateFailed); err != nil {
		log.Error().Err(err).Str("jobId", jobID).Msg("failed to mark job as failed")
	}
}

// removeQuiet deletes a transient file, logging rather than surfacing
// failures: cleanup errors never alter an outcome already decided.
func removeQuiet(path, jobID, what string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Error().Err(err).Str("jobId", jobID).Str("path", path).Msgf("failed to remove %s", what)
	}
}
