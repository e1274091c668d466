// Package journal persists the outcome of provisioning runs. Each run and
// every step it executed get a row, so an operator can see what a host has
// already been through before re-running the tool.
package journal

import (
	"context"
	"time"

	"github.com/artpar/dockhand/internal/core/plan"
)

// =============================================================================
// Journal Types
// =============================================================================

// Run is one provisioning invocation against a target.
type Run struct {
	ID         string
	Target     string // "local" or the SSH address
	Status     string // "running", "succeeded", "failed"
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// StepRecord is one executed step within a run.
type StepRecord struct {
	RunID    string
	Seq      int
	StepID   string
	Label    string
	Status   plan.Status
	Message  string
	Duration time.Duration
}

// =============================================================================
// Journal Interface
// =============================================================================

// Journal defines the persistence interface for provisioning history.
type Journal interface {
	// BeginRun records a new run in the running state.
	BeginRun(ctx context.Context, run *Run) error

	// RecordStep appends a step outcome to a run.
	RecordStep(ctx context.Context, record *StepRecord) error

	// FinishRun marks the run's terminal status and finish time.
	FinishRun(ctx context.Context, runID, status string, finishedAt time.Time) error

	// GetRun returns a run by ID.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListSteps returns a run's steps in execution order.
	ListSteps(ctx context.Context, runID string) ([]StepRecord, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	Close() error
}
