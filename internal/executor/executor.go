// Package executor runs short-lived OS tools (schtasks, whoami, ...) and
// captures their output for the caller.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/stranslate/host/internal/logging"
)

var log = logging.L("executor")

const (
	// DefaultTimeout bounds a single tool invocation.
	DefaultTimeout = 2 * time.Minute

	// MaxOutputSize is the maximum size of stdout/stderr to capture
	MaxOutputSize = 1024 * 1024 // 1MB
)

// Result is the status plus captured output of one command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (r Result) Success() bool {
	return r.ExitCode == 0
}

// ErrorText is what the tool printed about its failure: stderr, falling
// back to stdout for tools that report errors there.
func (r Result) ErrorText() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// Runner starts a command and waits for it. A non-zero exit is reported in
// Result.ExitCode, not as an error; err is set only when the command could
// not be run at all or timed out.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// CommandRunner is the os/exec backed Runner.
type CommandRunner struct {
	Timeout   time.Duration
	MaxOutput int
}

func New() *CommandRunner {
	return &CommandRunner{Timeout: DefaultTimeout, MaxOutput: MaxOutputSize}
}

func (r *CommandRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limit := r.MaxOutput
	if limit <= 0 {
		limit = MaxOutputSize
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{buf: &stdout, limit: limit}
	cmd.Stderr = &limitedWriter{buf: &stderr, limit: limit}

	setProcessGroup(cmd)

	start := time.Now()
	log.Debug("running command", "command", name, "args", args)

	err := cmd.Run()

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			if killErr := killProcessGroup(cmd); killErr != nil {
				log.Warn("failed to kill process group", "command", name, "error", killErr)
			}
			result.ExitCode = -1
			return result, fmt.Errorf("%s timed out after %s", name, timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			log.Debug("command exited", "command", name, "exitCode", result.ExitCode, "durationMs", time.Since(start).Milliseconds())
			return result, nil
		}
		result.ExitCode = -1
		return result, fmt.Errorf("run %s: %w", name, err)
	}

	log.Debug("command completed", "command", name, "durationMs", time.Since(start).Milliseconds())
	return result, nil
}

// limitedWriter wraps a buffer with a size limit
type limitedWriter struct {
	buf     *bytes.Buffer
	limit   int
	written int
}

func (w *limitedWriter) Write(p []byte) (n int, err error) {
	if w.written >= w.limit {
		// Discard additional data but don't error
		return len(p), nil
	}

	remaining := w.limit - w.written
	if len(p) > remaining {
		p = p[:remaining]
	}

	n, err = w.buf.Write(p)
	w.written += n
	return len(p), err
}
