package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// =============================================================================
// SSH Runner
// =============================================================================

// SSHConfig configures the SSH runner.
type SSHConfig struct {
	Host           string
	Port           int           // Default: 22
	User           string        // Default: root
	KeyPath        string        // Path to the private key file
	ConnectTimeout time.Duration // Default: 10 seconds
}

// SSH runs commands on a remote host over SSH, one session per command.
// The same provisioning plan runs unchanged against a remote target.
type SSH struct {
	config     SSHConfig
	signer     ssh.Signer
	transcript *Transcript

	client *ssh.Client
	mu     sync.Mutex // protects client
}

// NewSSH creates an SSH runner. The connection is established lazily on
// the first command.
func NewSSH(config SSHConfig, transcript *Transcript) (*SSH, error) {
	if config.Port == 0 {
		config.Port = 22
	}
	if config.User == "" {
		config.User = "root"
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}

	key, err := os.ReadFile(config.KeyPath)
	if err != nil {
		return nil, NewRunError("NewSSH", "", fmt.Sprintf("read SSH key: %v", err), ErrConnectFailed)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, NewRunError("NewSSH", "", fmt.Sprintf("parse SSH key: %v", err), ErrConnectFailed)
	}

	return &SSH{
		config:     config,
		signer:     signer,
		transcript: transcript,
	}, nil
}

// connect establishes the SSH connection if not already connected.
func (s *SSH) connect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		// Check if connection is still alive
		_, _, err := s.client.SendRequest("keepalive@dockhand", true, nil)
		if err == nil {
			return nil
		}
		s.client.Close()
		s.client = nil
	}

	config := &ssh.ClientConfig{
		User:            s.config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(s.signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: persist and verify host keys
		Timeout:         s.config.ConnectTimeout,
	}

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return NewRunError("connect", "", fmt.Sprintf("SSH dial %s: %v", addr, err), ErrConnectFailed)
	}

	s.client = client
	return nil
}

// Run executes the command in a fresh session.
func (s *SSH) Run(ctx context.Context, cmd Command) (ExecResult, error) {
	if err := s.connect(ctx); err != nil {
		return ExecResult{ExitCode: -1}, err
	}

	s.mu.Lock()
	session, err := s.client.NewSession()
	s.mu.Unlock()
	if err != nil {
		return ExecResult{ExitCode: -1}, NewRunError("Run", cmd.String(), fmt.Sprintf("create session: %v", err), ErrConnectFailed)
	}
	defer session.Close()

	if cmd.Stdin != nil {
		session.Stdin = cmd.Stdin
	}

	var stdout, stderr bytes.Buffer
	sink := s.sink(cmd)
	session.Stdout = io.MultiWriter(&stdout, sink)
	session.Stderr = io.MultiWriter(&stderr, sink)

	done := make(chan error, 1)
	go func() {
		done <- session.Run(commandLine(cmd))
	}()

	select {
	case <-ctx.Done():
		return ExecResult{ExitCode: -1}, NewRunError("Run", cmd.String(), ctx.Err().Error(), ErrExecFailed)
	case err := <-done:
		if err != nil {
			var exitErr *ssh.ExitError
			if errors.As(err, &exitErr) {
				return ExecResult{ExitCode: exitErr.ExitStatus(), Stdout: stdout.String(), Stderr: stderr.String()}, nil
			}
			return ExecResult{ExitCode: -1}, NewRunError("Run", cmd.String(), err.Error(), ErrExecFailed)
		}
	}

	return ExecResult{ExitCode: 0, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// LookPath checks binary presence via the remote shell.
func (s *SSH) LookPath(ctx context.Context, name string) (bool, error) {
	res, err := s.Run(ctx, Command{Script: "command -v " + name})
	if err != nil {
		return false, err
	}
	return res.Ok(), nil
}

// Close closes the SSH connection.
func (s *SSH) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		err := s.client.Close()
		s.client = nil
		return err
	}
	return nil
}

// commandLine renders the command for the remote shell.
func commandLine(cmd Command) string {
	var line string
	if cmd.Script != "" {
		line = cmd.Script
	} else {
		parts := append([]string{cmd.Name}, cmd.Args...)
		line = strings.Join(parts, " ")
	}

	var env strings.Builder
	for k, v := range cmd.Env {
		fmt.Fprintf(&env, "%s=%s ", k, v)
	}

	if cmd.Dir != "" {
		return fmt.Sprintf("cd %s && %s%s", ShellQuote(cmd.Dir), env.String(), line)
	}
	return env.String() + line
}

// sink returns the transcript writer with a heading, or a discard writer.
func (s *SSH) sink(cmd Command) io.Writer {
	if s.transcript == nil {
		return io.Discard
	}
	s.transcript.Heading(fmt.Sprintf("[%s] %s", s.config.Host, cmd.String()))
	return s.transcript
}
