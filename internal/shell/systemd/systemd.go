// Package systemd wraps systemctl for service activation and readiness.
package systemd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/dockhand/internal/core/plan"
	"github.com/artpar/dockhand/internal/shell/run"
)

var (
	// ErrSystemctlFailed means a systemctl invocation exited non-zero.
	ErrSystemctlFailed = errors.New("systemctl failed")

	// ErrNotActive means the unit never reached the active state within the
	// poll policy's attempts.
	ErrNotActive = errors.New("service did not become active")
)

// Manager runs systemctl operations through a runner.
type Manager struct {
	runner run.Runner

	// sleep is swapped in tests to avoid real delays.
	sleep func(context.Context, time.Duration) error
}

// NewManager creates a systemd manager.
func NewManager(runner run.Runner) *Manager {
	return &Manager{
		runner: runner,
		sleep:  sleepCtx,
	}
}

// Start starts the unit.
func (m *Manager) Start(ctx context.Context, unit string) error {
	return m.systemctl(ctx, "start", unit)
}

// Enable enables the unit at boot.
func (m *Manager) Enable(ctx context.Context, unit string) error {
	return m.systemctl(ctx, "enable", unit)
}

// IsActive reports whether the unit is in the active state.
// systemctl is-active exits non-zero for inactive units; only the stdout
// value decides.
func (m *Manager) IsActive(ctx context.Context, unit string) (bool, error) {
	res, err := m.runner.Run(ctx, run.Command{Name: "systemctl", Args: []string{"is-active", unit}})
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(res.Stdout) == "active", nil
}

// WaitActive polls the unit's active state per the policy. It returns nil
// as soon as the unit is active, or ErrNotActive after the final attempt.
func (m *Manager) WaitActive(ctx context.Context, unit string, policy plan.PollPolicy) error {
	attempts := policy.Attempts()

	for attempt := 1; attempt <= attempts; attempt++ {
		if delay := policy.Delay(attempt); delay > 0 {
			if err := m.sleep(ctx, delay); err != nil {
				return err
			}
		}

		active, err := m.IsActive(ctx, unit)
		if err != nil {
			return err
		}
		if active {
			return nil
		}
	}

	return fmt.Errorf("%s not active after %d attempts: %w", unit, attempts, ErrNotActive)
}

// systemctl runs a single systemctl invocation.
func (m *Manager) systemctl(ctx context.Context, verb, unit string) error {
	res, err := m.runner.Run(ctx, run.Command{Name: "systemctl", Args: []string{verb, unit}})
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("systemctl %s %s exited with status %d: %w",
			verb, unit, res.ExitCode, ErrSystemctlFailed)
	}
	return nil
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
