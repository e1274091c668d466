package run

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// =============================================================================
// Local Runner
// =============================================================================

// Local runs commands on the machine the tool is executing on.
type Local struct {
	transcript *Transcript
}

// NewLocal creates a local runner. transcript may be nil, in which case
// command output is discarded.
func NewLocal(transcript *Transcript) *Local {
	return &Local{transcript: transcript}
}

// Run executes the command, teeing combined output to the transcript and
// capturing stdout. Non-zero exits are returned in ExecResult.
func (l *Local) Run(ctx context.Context, cmd Command) (ExecResult, error) {
	var c *exec.Cmd
	if cmd.Script != "" {
		c = exec.CommandContext(ctx, "sh", "-c", cmd.Script)
	} else {
		c = exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	}

	if cmd.Dir != "" {
		c.Dir = cmd.Dir
	}
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	c.Env = os.Environ()
	for k, v := range cmd.Env {
		c.Env = append(c.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	sink := l.sink(cmd)
	c.Stdout = io.MultiWriter(&stdout, sink)
	c.Stderr = io.MultiWriter(&stderr, sink)

	err := c.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return ExecResult{ExitCode: exitErr.ExitCode(), Stdout: stdout.String(), Stderr: stderr.String()}, nil
		}
		return ExecResult{ExitCode: -1}, NewRunError("Run", cmd.String(), err.Error(), ErrExecFailed)
	}

	return ExecResult{ExitCode: 0, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// LookPath reports whether the binary is on PATH.
func (l *Local) LookPath(_ context.Context, name string) (bool, error) {
	_, err := exec.LookPath(name)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return false, nil
		}
		// exec.ErrDot and permission problems still mean the binary exists
		// but is not cleanly runnable; report absent so installs proceed.
		return false, nil
	}
	return true, nil
}

// Close implements Runner. The local runner holds no connections.
func (l *Local) Close() error {
	return nil
}

// sink returns the transcript writer with a heading, or a discard writer.
func (l *Local) sink(cmd Command) io.Writer {
	if l.transcript == nil {
		return io.Discard
	}
	l.transcript.Heading(cmd.String())
	return l.transcript
}
