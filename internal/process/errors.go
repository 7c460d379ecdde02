package process

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for the process package.
var (
	// ErrBinaryNotFound is returned when the command's binary is not on PATH
	// or does not exist.
	ErrBinaryNotFound = errors.New("process: binary not found")

	// ErrTimeout is returned when a command outlives its timeout and is killed.
	ErrTimeout = errors.New("process: timed out")
)

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	// Name is the command's human-readable name.
	Name string
	// Code is the exit status.
	Code int
	// Stderr is the trimmed standard error output.
	Stderr string
	// Err is the underlying *exec.ExitError.
	Err error
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Name, e.Code, msg)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
