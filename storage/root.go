package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Root is the resolved pair of working directories for one server run.
// It is immutable after Resolve and safe for unsynchronized concurrent reads.
type Root struct {
	IntakeDir string
	OutputDir string
}

// Resolve ensures the intake and output directories exist under base and
// returns their paths. Resolving the same base again yields identical paths.
// A directory that cannot be created or written is a fatal configuration
// problem for the caller, not something to retry.
func Resolve(base string) (Root, error) {
	root := Root{
		IntakeDir: filepath.Join(base, "intake"),
		OutputDir: filepath.Join(base, "output"),
	}

	for _, dir := range []string{root.IntakeDir, root.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Root{}, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
		if err := probeWritable(dir); err != nil {
			return Root{}, fmt.Errorf("storage directory %s is not writable: %w", dir, err)
		}
	}
	return root, nil
}

// IntakePath returns the intake location for a job, keeping the original
// extension so the engine can rely on it for container detection.
func (r Root) IntakePath(jobID, originalName string) string {
	return filepath.Join(r.IntakeDir, jobID+filepath.Ext(originalName))
}

// OutputPath returns the output location for a job.
func (r Root) OutputPath(jobID string) string {
	return filepath.Join(r.OutputDir, jobID+".mp3")
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
