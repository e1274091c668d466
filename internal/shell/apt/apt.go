// Package apt wraps the Debian/Ubuntu package manager for provisioning
// steps. All invocations are non-interactive; exit status is surfaced to
// the step layer which decides how to report it.
package apt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/dockhand/internal/shell/run"
)

// ErrAptFailed means an apt-get invocation exited non-zero.
var ErrAptFailed = errors.New("apt-get failed")

// nonInteractive keeps dpkg from prompting during upgrades.
var nonInteractive = map[string]string{"DEBIAN_FRONTEND": "noninteractive"}

// Manager runs apt-get operations through a runner.
type Manager struct {
	runner run.Runner
}

// NewManager creates an apt manager.
func NewManager(runner run.Runner) *Manager {
	return &Manager{runner: runner}
}

// Update refreshes the package index.
func (m *Manager) Update(ctx context.Context) error {
	return m.aptGet(ctx, "update")
}

// Upgrade upgrades installed packages.
func (m *Manager) Upgrade(ctx context.Context) error {
	return m.aptGet(ctx, "upgrade", "-y")
}

// Install installs the given packages.
func (m *Manager) Install(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	args := append([]string{"install", "-y"}, pkgs...)
	return m.aptGet(ctx, args...)
}

// HasBinary reports whether the named binary is already on the target's path.
func (m *Manager) HasBinary(ctx context.Context, name string) (bool, error) {
	return m.runner.LookPath(ctx, name)
}

// aptGet runs a single apt-get invocation.
func (m *Manager) aptGet(ctx context.Context, args ...string) error {
	res, err := m.runner.Run(ctx, run.Command{
		Name: "apt-get",
		Args: args,
		Env:  nonInteractive,
	})
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("apt-get %s exited with status %d: %w",
			strings.Join(args, " "), res.ExitCode, ErrAptFailed)
	}
	return nil
}
