package systemd

import (
	"context"
	"testing"
	"time"

	"github.com/artpar/dockhand/internal/core/plan"
	"github.com/artpar/dockhand/internal/shell/run"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Fake Runner
// =============================================================================

// scriptedRunner returns queued results, one per Run call.
type scriptedRunner struct {
	commands []run.Command
	results  []run.ExecResult
}

func (f *scriptedRunner) Run(_ context.Context, cmd run.Command) (run.ExecResult, error) {
	f.commands = append(f.commands, cmd)
	if len(f.results) == 0 {
		return run.ExecResult{}, nil
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res, nil
}

func (f *scriptedRunner) LookPath(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (f *scriptedRunner) Close() error { return nil }

func newTestManager(runner run.Runner) *Manager {
	m := NewManager(runner)
	m.sleep = func(context.Context, time.Duration) error { return nil }
	return m
}

// =============================================================================
// Manager Tests
// =============================================================================

func TestStartAndEnable(t *testing.T) {
	runner := &scriptedRunner{}
	mgr := newTestManager(runner)

	require.NoError(t, mgr.Start(context.Background(), "docker"))
	require.NoError(t, mgr.Enable(context.Background(), "docker"))

	require.Len(t, runner.commands, 2)
	assert.Equal(t, []string{"start", "docker"}, runner.commands[0].Args)
	assert.Equal(t, []string{"enable", "docker"}, runner.commands[1].Args)
}

func TestStart_NonZeroExit(t *testing.T) {
	runner := &scriptedRunner{results: []run.ExecResult{{ExitCode: 5}}}
	mgr := newTestManager(runner)

	err := mgr.Start(context.Background(), "docker")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSystemctlFailed)
}

func TestIsActive(t *testing.T) {
	runner := &scriptedRunner{results: []run.ExecResult{{ExitCode: 0, Stdout: "active\n"}}}
	mgr := newTestManager(runner)

	active, err := mgr.IsActive(context.Background(), "docker")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestIsActive_Inactive(t *testing.T) {
	// is-active exits 3 for inactive units; the stdout value decides.
	runner := &scriptedRunner{results: []run.ExecResult{{ExitCode: 3, Stdout: "inactive\n"}}}
	mgr := newTestManager(runner)

	active, err := mgr.IsActive(context.Background(), "docker")
	require.NoError(t, err)
	assert.False(t, active)
}

// =============================================================================
// WaitActive Tests
// =============================================================================

func TestWaitActive_EventuallyActive(t *testing.T) {
	runner := &scriptedRunner{results: []run.ExecResult{
		{ExitCode: 3, Stdout: "activating\n"},
		{ExitCode: 3, Stdout: "activating\n"},
		{ExitCode: 0, Stdout: "active\n"},
	}}
	mgr := newTestManager(runner)

	err := mgr.WaitActive(context.Background(), "docker", plan.PollPolicy{MaxAttempts: 5, Interval: time.Second})
	require.NoError(t, err)
	assert.Len(t, runner.commands, 3)
}

func TestWaitActive_Exhaustion(t *testing.T) {
	runner := &scriptedRunner{results: []run.ExecResult{{ExitCode: 3, Stdout: "inactive\n"}}}
	mgr := newTestManager(runner)

	err := mgr.WaitActive(context.Background(), "docker", plan.PollPolicy{MaxAttempts: 30, Interval: time.Second})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotActive)
	assert.Contains(t, err.Error(), "docker not active after 30 attempts")
	assert.Len(t, runner.commands, 30)
}

func TestWaitActive_CancelledDuringDelay(t *testing.T) {
	runner := &scriptedRunner{results: []run.ExecResult{{ExitCode: 3, Stdout: "inactive\n"}}}
	mgr := NewManager(runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mgr.WaitActive(ctx, "docker", plan.PollPolicy{MaxAttempts: 3, Interval: time.Minute})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
