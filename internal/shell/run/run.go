// Package run executes host commands for provisioning steps.
// This is part of the Imperative Shell - it owns process execution and the
// transcript log file. Steps treat a non-zero exit as data, not an error;
// errors mean the command could not be run at all.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// =============================================================================
// Command & Result Types
// =============================================================================

// Command describes one external command invocation.
type Command struct {
	// Name and Args invoke a binary directly. Ignored when Script is set.
	Name string
	Args []string

	// Script, when non-empty, is run through "sh -c" so pipelines like
	// "curl -fsSL https://get.docker.com | sh" work on both runners.
	Script string

	// Dir is the working directory. Empty means the runner's default.
	Dir string

	// Env holds extra environment variables (e.g. DEBIAN_FRONTEND).
	Env map[string]string

	// Stdin, when non-nil, is streamed to the command.
	Stdin io.Reader
}

// String renders the command for logging.
func (c Command) String() string {
	if c.Script != "" {
		return "sh -c " + c.Script
	}
	s := c.Name
	for _, a := range c.Args {
		s += " " + a
	}
	return s
}

// ShellQuote wraps s in single quotes so it survives interpolation into an
// sh command line with spaces and metacharacters intact. Embedded single
// quotes are closed, escaped, and reopened.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ExecResult holds the outcome of a completed command. Both streams are
// also teed to the transcript.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Ok reports whether the command exited zero.
func (r ExecResult) Ok() bool {
	return r.ExitCode == 0
}

// =============================================================================
// Runner Interface
// =============================================================================

// Runner executes commands on the provisioning target. Local provisions
// the machine the tool runs on; SSH provisions a remote host with the
// identical step plan.
type Runner interface {
	// Run executes the command to completion. A non-zero exit status is
	// reported in ExecResult, not as an error.
	Run(ctx context.Context, cmd Command) (ExecResult, error)

	// LookPath reports whether the named binary is on the target's search path.
	LookPath(ctx context.Context, name string) (bool, error)

	// Close releases any held connections.
	Close() error
}

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrExecFailed means the command could not be started or completed.
	ErrExecFailed = errors.New("command execution failed")

	// ErrConnectFailed means the target could not be reached.
	ErrConnectFailed = errors.New("target connection failed")
)

// RunError wraps execution failures with the command that caused them.
type RunError struct {
	Op      string
	Command string
	Message string
	Err     error
}

func (e *RunError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s %q: %s", e.Op, e.Command, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError creates a new RunError.
func NewRunError(op, command, message string, err error) *RunError {
	return &RunError{
		Op:      op,
		Command: command,
		Message: message,
		Err:     err,
	}
}
