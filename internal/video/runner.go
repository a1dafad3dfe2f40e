package video

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-image-restorer/internal/logger"
)

// Runner lets us stub ffmpeg and ffprobe in tests
type Runner interface {
	// Output runs a command to completion and returns its stdout
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Start launches a streaming command with piped stdin and stdout
	Start(ctx context.Context, name string, args ...string) (*Process, error)
}

// Process is a running streaming command
type Process struct {
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	wait   func() error
}

// NewProcess assembles a Process; used by Runner implementations
func NewProcess(stdin io.WriteCloser, stdout io.ReadCloser, wait func() error) *Process {
	return &Process{Stdin: stdin, Stdout: stdout, wait: wait}
}

// Wait blocks until the command exits
func (p *Process) Wait() error {
	return p.wait()
}

// NewExecRunner returns a Runner backed by os/exec
func NewExecRunner() Runner {
	return execRunner{}
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	fields := logrus.Fields{
		"cmd":         name,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		logger.WithFields(fields).WithField("stderr", truncate(errb.String(), 8<<10)).WithError(err).Error("exec failed")
		return nil, fmt.Errorf("%s: %w: %s", name, err, truncate(strings.TrimSpace(errb.String()), 512))
	}
	logger.WithFields(fields).WithField("stdout_bytes", out.Len()).Debug("exec ok")
	return out.Bytes(), nil
}

func (execRunner) Start(ctx context.Context, name string, args ...string) (*Process, error) {
	logger.WithField("cmd_line", strings.Join(append([]string{name}, args...), " ")).Debug("starting command")

	cmd := exec.CommandContext(ctx, name, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr := &tailBuffer{max: 8 << 10}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	return NewProcess(stdin, stdout, func() error {
		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("%s: %w: %s", name, err, truncate(strings.TrimSpace(stderr.String()), 512))
		}
		return nil
	}), nil
}

// tailBuffer keeps the last max bytes written to it
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
