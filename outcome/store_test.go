package outcome

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "outcomes.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	rec := Record{
		JobID:        "job-1",
		OriginalName: "clip.mp4",
		Status:       StatusCompleted,
		Size:         2 << 20,
	}
	if err := s.Put(rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get("job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a record")
	}
	if got.Status != StatusCompleted || got.OriginalName != "clip.mp4" {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("Put should backfill the timestamp")
	}
}

func TestGetMissingRecordIsNilNotError(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Get("no-such-job")
	if err != nil {
		t.Fatalf("Get returned error for missing record: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil record, got %+v", got)
	}
}

func TestPutRequiresJobID(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put(Record{Status: StatusFailed}); err == nil {
		t.Error("expected Put without job id to fail")
	}
}

func TestListReturnsAllRecords(t *testing.T) {
	s := openTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Put(Record{JobID: id, Status: StatusFailed, Reason: "engine exited"}); err != nil {
			t.Fatalf("Put(%s) failed: %v", id, err)
		}
	}

	records, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}
}

func TestCleanupRemovesOnlyStaleRecords(t *testing.T) {
	s := openTestStore(t)

	old := Record{JobID: "old", Status: StatusCompleted, Timestamp: time.Now().Add(-48 * time.Hour)}
	fresh := Record{JobID: "fresh", Status: StatusCompleted, Timestamp: time.Now()}
	for _, rec := range []Record{old, fresh} {
		if err := s.Put(rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	if err := s.CleanupOldRecords(24 * time.Hour); err != nil {
		t.Fatalf("CleanupOldRecords failed: %v", err)
	}

	if got, _ := s.Get("old"); got != nil {
		t.Error("stale record should have been removed")
	}
	if got, _ := s.Get("fresh"); got == nil {
		t.Error("fresh record should have been kept")
	}
}

func TestCheckHealth(t *testing.T) {
	s := openTestStore(t)
	if err := s.CheckHealth(); err != nil {
		t.Errorf("expected healthy store, got %v", err)
	}

	var nilStore *Store
	if err := nilStore.CheckHealth(); err == nil {
		t.Error("expected nil store to report unhealthy")
	}
}
