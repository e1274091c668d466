package provision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/artpar/dockhand/internal/core/plan"
	"github.com/artpar/dockhand/internal/shell/journal"
	"github.com/google/uuid"
)

// =============================================================================
// Executor
// =============================================================================

// Executor runs a step sequence, prints one line per outcome, and records
// the run in the journal when one is attached.
type Executor struct {
	// Out receives the operator-visible step lines and summary.
	Out io.Writer

	// Logger receives structured step events.
	Logger *slog.Logger

	// Journal persists the run when non-nil.
	Journal journal.Journal

	// LogPath is the transcript file referenced in failure lines.
	LogPath string

	// ReportOnly keeps executing after a failed step instead of halting,
	// so the report covers the whole pipeline.
	ReportOnly bool

	now func() time.Time
}

// NewExecutor creates an executor writing step lines to out.
func NewExecutor(out io.Writer, logger *slog.Logger) *Executor {
	return &Executor{
		Out:    out,
		Logger: logger.With("component", "provision"),
		now:    time.Now,
	}
}

// Execute runs the steps in order and returns the aggregated report. A
// failed step halts the run unless ReportOnly is set; the failure is
// reported through the report's exit code, not through the error return,
// which covers executor-level problems only.
func (e *Executor) Execute(ctx context.Context, target string, steps []Step) (*plan.Report, error) {
	started := e.clock()
	report := plan.NewReport(started)

	// The journal is bookkeeping; a failed write must never stop the
	// provisioning of an otherwise healthy target.
	j := e.Journal
	runID := uuid.NewString()
	if j != nil {
		err := j.BeginRun(ctx, &journal.Run{
			ID:        runID,
			Target:    target,
			StartedAt: started,
		})
		if err != nil {
			e.Logger.Warn("journal unavailable for this run, continuing without it", "error", err)
			j = nil
		}
	}

	fmt.Fprintf(e.Out, "Provisioning %s (%d steps)\n", target, len(steps))

	halted := false
	for i, step := range steps {
		if halted {
			break
		}

		e.Logger.Info("step starting", "step", step.ID, "seq", i+1)
		stepStart := e.clock()

		skipped, message, err := step.Run(ctx)
		duration := e.clock().Sub(stepStart)

		result := plan.StepResult{
			StepID:   step.ID,
			Label:    step.Label,
			Status:   plan.StatusOK,
			Message:  message,
			Duration: duration,
			Err:      err,
		}
		switch {
		case err != nil:
			result.Status = plan.StatusFailed
			result.Message = err.Error()
		case skipped:
			result.Status = plan.StatusSkipped
		}

		report.Add(result)
		fmt.Fprintln(e.Out, result.Line(e.LogPath))
		e.Logger.Info("step finished",
			"step", step.ID, "status", string(result.Status), "duration", duration)

		e.recordStep(ctx, j, runID, i+1, step, result)

		if result.Failed() && !e.ReportOnly {
			halted = true
		}
	}

	finished := e.clock()
	if j != nil {
		status := journal.RunStatusSucceeded
		if !report.Ok() {
			status = journal.RunStatusFailed
		}
		if err := j.FinishRun(ctx, runID, status, finished); err != nil {
			e.Logger.Warn("failed to finish journal run", "run_id", runID, "error", err)
		}
	}

	fmt.Fprintln(e.Out)
	for _, line := range report.Summary(finished) {
		fmt.Fprintln(e.Out, line)
	}

	return report, nil
}

// recordStep persists one step outcome. Journal write failures are logged
// and do not affect the run.
func (e *Executor) recordStep(ctx context.Context, j journal.Journal, runID string, seq int, step Step, result plan.StepResult) {
	if j == nil {
		return
	}

	err := j.RecordStep(ctx, &journal.StepRecord{
		RunID:    runID,
		Seq:      seq,
		StepID:   step.ID,
		Label:    step.Label,
		Status:   result.Status,
		Message:  result.Message,
		Duration: result.Duration,
	})
	if err != nil {
		e.Logger.Warn("failed to record step", "run_id", runID, "step", step.ID, "error", err)
	}
}

func (e *Executor) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

// =============================================================================
// Dry Run
// =============================================================================

// Describe renders the plan without executing it, one line per step.
func Describe(steps []Step) []string {
	lines := make([]string, 0, len(steps))
	for _, step := range steps {
		lines = append(lines, fmt.Sprintf("  • %s", step.Label))
	}
	return lines
}
