package plan

import (
	"fmt"
	"time"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	// ExitSuccess means every step succeeded or was skipped.
	ExitSuccess = 0
	// ExitFailure means at least one step failed.
	ExitFailure = 1
)

// =============================================================================
// Report
// =============================================================================

// Report is the ordered collection of step results for one provisioning run.
type Report struct {
	results []StepResult
	started time.Time
}

// NewReport creates an empty report for a run starting now.
func NewReport(started time.Time) *Report {
	return &Report{started: started}
}

// Add appends a step result.
func (rp *Report) Add(result StepResult) {
	rp.results = append(rp.results, result)
}

// Results returns the recorded results in execution order.
func (rp *Report) Results() []StepResult {
	return rp.results
}

// Ok reports whether no step failed.
func (rp *Report) Ok() bool {
	return rp.FailedStep() == nil
}

// FailedStep returns the first failed step, or nil.
func (rp *Report) FailedStep() *StepResult {
	for i := range rp.results {
		if rp.results[i].Failed() {
			return &rp.results[i]
		}
	}
	return nil
}

// ExitCode maps the aggregate outcome to a process exit code.
func (rp *Report) ExitCode() int {
	if rp.Ok() {
		return ExitSuccess
	}
	return ExitFailure
}

// Counts returns the number of succeeded, skipped, and failed steps.
func (rp *Report) Counts() (ok, skipped, failed int) {
	for _, r := range rp.results {
		switch r.Status {
		case StatusOK:
			ok++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return ok, skipped, failed
}

// Summary renders the final printout lines for the run.
func (rp *Report) Summary(now time.Time) []string {
	ok, skipped, failed := rp.Counts()

	lines := []string{
		fmt.Sprintf("%d succeeded, %d skipped, %d failed in %s",
			ok, skipped, failed, now.Sub(rp.started).Round(time.Second)),
	}

	if failed > 0 {
		f := rp.FailedStep()
		lines = append(lines, fmt.Sprintf("provisioning failed at: %s", f.Label))
	}

	return lines
}
