package outcome

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

// Status values recorded for terminal jobs.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Record is the durable trace of one terminal job. It carries metadata
// only: artifact locations are never persisted, so nothing here outlives
// the one-shot download contract.
type Record struct {
	JobID        string    `json:"job_id"`
	OriginalName string    `json:"original_name"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	Size         int64     `json:"size"`
	Timestamp    time.Time `json:"timestamp"`
}

// Store keeps job outcome records in a Pebble database.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the outcome database at the given path.
func Open(dbPath string) (*Store, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open outcome store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores a terminal record for a job, overwriting any previous one.
func (s *Store) Put(rec Record) error {
	if rec.JobID == "" {
		return errors.New("outcome record needs a job id")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome record: %w", err)
	}
	return s.db.Set([]byte(rec.JobID), data, pebble.Sync)
}

// Get retrieves the record for a job. A missing record returns (nil, nil).
func (s *Store) Get(jobID string) (*Record, error) {
	data, closer, err := s.db.Get([]byte(jobID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outcome record: %w", err)
	}
	return &rec, nil
}

// List returns all records, for the diagnostic routes.
func (s *Store) List() ([]Record, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var records []Record
	for iter.First(); iter.Valid(); iter.Next() {
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue // skip records that no longer parse
		}
		records = append(records, rec)
	}
	return records, nil
}

// CleanupOldRecords removes records older than maxAge.
func (s *Store) CleanupOldRecords(maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	defer iter.Close()

	var stale [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		if rec.Timestamp.Before(cutoff) {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			stale = append(stale, key)
		}
	}

	for _, key := range stale {
		if err := s.db.Delete(key, pebble.Sync); err != nil {
			return fmt.Errorf("failed to delete stale outcome record: %w", err)
		}
	}
	return nil
}

// CheckHealth verifies the database answers a read.
func (s *Store) CheckHealth() error {
	if s == nil || s.db == nil {
		return errors.New("outcome store not initialized")
	}
	_, closer, err := s.db.Get([]byte("__health_check__"))
	if err != nil && !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("outcome store health check failed: %w", err)
	}
	if closer != nil {
		closer.Close()
	}
	return nil
}
