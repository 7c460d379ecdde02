package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

const (
	// DefaultTimeout bounds a command when neither the command nor the runner
	// sets a timeout.
	DefaultTimeout = 30 * time.Second

	// waitDelay is how long Run waits for output pipes after the process is
	// killed.
	waitDelay = 2 * time.Second

	// maxLoggedOutput caps the output included in debug logs.
	maxLoggedOutput = 4096
)

// Command describes one invocation of an external tool.
type Command struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the executable name or path. Bare names are resolved on PATH.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from parent process.
	Env []string

	// Timeout overrides the runner's timeout for this command.
	Timeout time.Duration
}

// Result is the captured outcome of a command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Runner runs a command to completion.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Logger defines the logging interface for the runner.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ExecRunner runs commands as child processes.
//
// Each command runs in its own process group. On timeout or cancellation the
// whole group is killed so helper processes spawned by the tool do not
// linger.
type ExecRunner struct {
	timeout time.Duration
	logger  Logger
}

// NewExecRunner creates a runner with the given default timeout.
// A zero timeout selects DefaultTimeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{timeout: timeout, logger: noopLogger{}}
}

// SetLogger sets the logger for the runner.
func (r *ExecRunner) SetLogger(logger Logger) {
	r.logger = logger
}

// Run executes cmd and waits for it to exit.
//
// The returned Result carries whatever output was captured, including on
// failure.
//
// Returns:
//   - ErrBinaryNotFound if the binary cannot be located
//   - ErrTimeout if the command was killed after its timeout
//   - *ExitError if the command exited non-zero
//   - ctx.Err() if ctx was cancelled
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	name := c.Name
	if name == "" {
		name = c.Binary
	}

	path, err := exec.LookPath(c.Binary)
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, c.Binary, err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, c.Args...) //nolint:gosec // Binary comes from operator configuration

	// Create a new process group so the whole tree is killed on timeout
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// Negative PID signals the process group
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			return err
		}
		return nil
	}
	cmd.WaitDelay = waitDelay

	if c.Env != nil {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running command", "name", name, "binary", path, "args", c.Args)

	start := time.Now()
	runErr := cmd.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}

	r.logger.Debug("command finished",
		"name", name,
		"exit_code", res.ExitCode,
		"duration_ms", res.Duration.Milliseconds(),
		"stdout", truncate(res.Stdout),
		"stderr", truncate(res.Stderr),
	)

	if runErr == nil {
		return res, nil
	}

	// Parent cancellation wins over our own deadline
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		r.logger.Warn("command timed out", "name", name, "timeout", timeout)
		return res, fmt.Errorf("%w: %s after %s", ErrTimeout, name, timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return res, &ExitError{Name: name, Code: res.ExitCode, Stderr: string(res.Stderr), Err: exitErr}
	}
	return res, fmt.Errorf("running %s: %w", name, runErr)
}

func truncate(b []byte) string {
	if len(b) > maxLoggedOutput {
		return string(b[:maxLoggedOutput]) + "..."
	}
	return string(b)
}
