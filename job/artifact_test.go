package job

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func readyJob(t *testing.T, reg *Registry) (string, string) {
	t.Helper()

	id := NewID()
	out := filepath.Join(t.TempDir(), id+".mp3")
	if err := os.WriteFile(out, []byte("mp3-bytes"), 0o644); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}

	if err := reg.Create(id, "clip.mp4", 9, ""); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	reg.Transition(id, StateConverting)
	reg.setOutput(id, out)
	if err := reg.Transition(id, StateReady); err != nil {
		t.Fatalf("transition to ready failed: %v", err)
	}
	return id, out
}

func TestOpenStreamsReadyArtifactOnce(t *testing.T) {
	reg := NewRegistry()
	arts := NewArtifacts(reg)
	id, _ := readyJob(t, reg)

	h, err := arts.Open(id)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.Close()

	data, err := io.ReadAll(h.File)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Errorf("unexpected artifact contents: %q", data)
	}
	if h.OriginalName != "clip.mp4" {
		t.Errorf("unexpected original name: %s", h.OriginalName)
	}

	// Second open must lose even though the file still exists on disk.
	if _, err := arts.Open(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second Open, got %v", err)
	}
}

func TestOpenUnknownJobIsNotFound(t *testing.T) {
	arts := NewArtifacts(NewRegistry())
	if _, err := arts.Open("no-such-job"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReleaseDeletesArtifactAndCompletesJob(t *testing.T) {
	reg := NewRegistry()
	arts := NewArtifacts(reg)
	id, out := readyJob(t, reg)

	h, err := arts.Open(id)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	h.Close()
	arts.Release(id)

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("artifact should be deleted after release, stat: %v", err)
	}
	if j, _ := reg.Get(id); j.State != StateCompleted {
		t.Errorf("expected completed state after release, got %s", j.State)
	}
	if _, err := arts.Open(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after release, got %v", err)
	}
}

func TestReleaseWithoutOpenAlsoDeletes(t *testing.T) {
	// Ready -> Completed directly: release may fire before streaming ever
	// starts.
	reg := NewRegistry()
	arts := NewArtifacts(reg)
	id, out := readyJob(t, reg)

	arts.Release(id)

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("artifact should be deleted, stat: %v", err)
	}
}

func TestReleaseIsIdempotentUnderConcurrentTriggers(t *testing.T) {
	reg := NewRegistry()
	arts := NewArtifacts(reg)
	id, out := readyJob(t, reg)

	h, err := arts.Open(id)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	h.Close()

	// Simulate delivery, write-error, and disconnect triggers racing.
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			arts.Release(id)
		}()
	}
	wg.Wait()

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("artifact should be deleted exactly once, stat: %v", err)
	}
	if j, _ := reg.Get(id); j.State != StateCompleted {
		t.Errorf("expected completed state, got %s", j.State)
	}
}

func TestConcurrentOpensAdmitExactlyOne(t *testing.T) {
	reg := NewRegistry()
	arts := NewArtifacts(reg)
	id, _ := readyJob(t, reg)

	const n = 10
	var wg sync.WaitGroup
	won := make(chan *Handle, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h, err := arts.Open(id); err == nil {
				won <- h
			}
		}()
	}
	wg.Wait()
	close(won)

	winners := 0
	for h := range won {
		winners++
		h.Close()
	}
	if winners != 1 {
		t.Errorf("expected exactly one successful Open, got %d", winners)
	}
}
