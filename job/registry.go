package job

import (
	"fmt"
	"sync"
	"time"
)

// State represents the lifecycle position of a job.
type State int

const (
	StateValidated State = iota
	StateConverting
	StateReady
	StateStreaming
	StateCompleted
	StateFailed
)

// String returns the wire representation of a state.
func (s State) String() string {
	switch s {
	case StateValidated:
		return "validated"
	case StateConverting:
		return "converting"
	case StateReady:
		return "ready"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job is one validate -> convert -> stream -> release cycle for a single
// input. It never outlives the process.
type Job struct {
	ID           string
	OriginalName string
	Size         int64
	InputPath    string
	OutputPath   string
	State        State
	UpdatedAt    time.Time
}

// Registry tracks every live job and enforces its state machine. It is the
// single synchronization point for job and artifact bookkeeping.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Create registers a freshly validated job.
func (r *Registry) Create(id, originalName string, size int64, inputPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[id]; exists {
		return fmt.Errorf("job %s already registered", id)
	}
	r.jobs[id] = &Job{
		ID:           id,
		OriginalName: originalName,
		Size:         size,
		InputPath:    inputPath,
		State:        StateValidated,
		UpdatedAt:    time.Now(),
	}
	return nil
}

// Transition validates and applies a state change for a job.
func (r *Registry) Transition(id string, to State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(id, to)
}

func (r *Registry) transitionLocked(id string, to State) error {
	j, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	if !isValidTransition(j.State, to) {
		return fmt.Errorf("invalid transition for job %s: %s -> %s", id, j.State, to)
	}
	j.State = to
	j.UpdatedAt = time.Now()
	return nil
}

// Get returns a snapshot of a job.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

func (r *Registry) setOutput(id, outputPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		j.OutputPath = outputPath
	}
}

// Evict drops terminal jobs not touched since the cutoff and returns how
// many were removed. Live jobs are never evicted.
func (r *Registry) Evict(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, j := range r.jobs {
		if !isTerminal(j.State) {
			continue
		}
		if j.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
			evicted++
		}
	}
	return evicted
}

func isTerminal(s State) bool {
	return s == StateCompleted || s == StateFailed
}

// isValidTransition enforces the allowed state machine edges. Ready is only
// reachable through the orchestrator's post-completion check, and the
// Ready/Streaming -> Completed edge is the one-shot release gate.
func isValidTransition(from, to State) bool {
	switch from {
	case StateValidated:
		return to == StateConverting
	case StateConverting:
		return to == StateReady || to == StateFailed
	case StateReady:
		return to == StateStreaming || to == StateCompleted
	case StateStreaming:
		return to == StateCompleted
	default:
		return false
	}
}
