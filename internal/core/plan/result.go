// Package plan contains pure types and functions for sequencing
// provisioning steps and aggregating their results. No I/O happens here;
// the shell executor feeds results in and renders the report out.
package plan

import (
	"fmt"
	"time"
)

// =============================================================================
// Step Status
// =============================================================================

// Status is the terminal state of a single provisioning step.
type Status string

const (
	// StatusOK means the step ran and succeeded.
	StatusOK Status = "ok"
	// StatusSkipped means the step was not needed (e.g. binary already present).
	StatusSkipped Status = "skipped"
	// StatusFailed means the step ran and failed.
	StatusFailed Status = "failed"
)

// =============================================================================
// Step Result
// =============================================================================

// StepResult records the outcome of one executed step.
type StepResult struct {
	StepID   string
	Label    string
	Status   Status
	Message  string // skip notice or failure detail, empty on plain success
	Duration time.Duration
	Err      error
}

// Failed reports whether the step failed.
func (r StepResult) Failed() bool {
	return r.Status == StatusFailed
}

// Line renders the operator-visible line for this step. Failures point the
// operator at the transcript file.
func (r StepResult) Line(logPath string) string {
	switch r.Status {
	case StatusOK:
		return fmt.Sprintf("  ✔ %s", r.Label)
	case StatusSkipped:
		if r.Message != "" {
			return fmt.Sprintf("  ↷ %s (%s)", r.Label, r.Message)
		}
		return fmt.Sprintf("  ↷ %s (skipped)", r.Label)
	default:
		if logPath != "" {
			return fmt.Sprintf("  ✘ %s: %s (see %s)", r.Label, r.Message, logPath)
		}
		return fmt.Sprintf("  ✘ %s: %s", r.Label, r.Message)
	}
}
