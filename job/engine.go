package job

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// EngineError marks a failure of the external transcoding process: a
// reported error, a crash, or a missing post-completion output. It is fatal
// to the affected job only and never triggers a retry.
type EngineError struct {
	Message string
	Stderr  string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Stderr)
	}
	return e.Message
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// commandRunner abstracts process execution so tests can stand in for
// ffmpeg.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// FFmpeg invokes the ffmpeg binary with the service's fixed audio profile.
type FFmpeg struct {
	bin    string
	runner commandRunner
}

// NewFFmpeg builds the production engine around the given binary.
func NewFFmpeg(bin string) *FFmpeg {
	return &FFmpeg{bin: bin, runner: execRunner{}}
}

// Available reports whether the engine binary can be found and executed.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.bin)
	return err == nil
}

// Extract runs one engine invocation converting inputPath into an MP3 at
// outputPath. The output profile is fixed and not negotiable per request.
func (f *FFmpeg) Extract(ctx context.Context, inputPath, outputPath string) error {
	args := buildExtractArgs(inputPath, outputPath)
	stderr, err := f.runner.Run(ctx, f.bin, args...)
	if err != nil {
		var exitErr *exec.ExitError
		msg := "engine process failed"
		if errors.As(err, &exitErr) {
			msg = fmt.Sprintf("engine exited with code %d", exitErr.ExitCode())
		}
		return &EngineError{Message: msg, Stderr: stderrTail(stderr), Err: err}
	}
	return nil
}

// buildExtractArgs builds the CLI args for the fixed 192 kbps 44.1 kHz
// stereo MP3 profile.
func buildExtractArgs(inputPath, outputPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", "192k",
		"-ar", "44100",
		"-ac", "2",
		outputPath,
	}
}

// stderrTail keeps the last few lines of engine output, which is where
// ffmpeg puts the actual failure reason.
func stderrTail(s string) string {
	const maxLines = 5
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
