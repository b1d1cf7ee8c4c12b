package job

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeRunner struct {
	stderr string
	err    error

	gotName string
	gotArgs []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	f.gotName = name
	f.gotArgs = args
	return f.stderr, f.err
}

func TestExtractBuildsFixedProfileArgs(t *testing.T) {
	runner := &fakeRunner{}
	eng := &FFmpeg{bin: "ffmpeg", runner: runner}

	if err := eng.Extract(context.Background(), "/in/a.mp4", "/out/a.mp3"); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	joined := strings.Join(runner.gotArgs, " ")
	for _, want := range []string{
		"-i /in/a.mp4", "-vn", "-c:a libmp3lame", "-b:a 192k", "-ar 44100", "-ac 2", "/out/a.mp3",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if runner.gotName != "ffmpeg" {
		t.Errorf("unexpected binary: %s", runner.gotName)
	}
}

func TestExtractWrapsFailureAsEngineError(t *testing.T) {
	runner := &fakeRunner{
		stderr: "header\nmore noise\nInvalid data found when processing input",
		err:    errors.New("exit status 1"),
	}
	eng := &FFmpeg{bin: "ffmpeg", runner: runner}

	err := eng.Extract(context.Background(), "/in/a.mp4", "/out/a.mp3")
	var ee *EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EngineError, got %v", err)
	}
	if !strings.Contains(ee.Stderr, "Invalid data found") {
		t.Errorf("expected stderr tail in error, got %q", ee.Stderr)
	}
}

func TestStderrTailKeepsLastLines(t *testing.T) {
	lines := []string{"1", "2", "3", "4", "5", "6", "7"}
	tail := stderrTail(strings.Join(lines, "\n"))
	if strings.Contains(tail, "1\n") || !strings.Contains(tail, "7") {
		t.Errorf("unexpected tail: %q", tail)
	}
}
