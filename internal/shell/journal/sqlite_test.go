package journal

import (
	"context"
	"testing"
	"time"

	"github.com/artpar/dockhand/internal/core/plan"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestJournal(t *testing.T) Journal {
	t.Helper()
	j, err := NewSQLiteJournal(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		j.Close()
	})
	return j
}

func beginTestRun(t *testing.T, j Journal) *Run {
	t.Helper()
	run := &Run{
		ID:        uuid.NewString(),
		Target:    "local",
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, j.BeginRun(context.Background(), run))
	return run
}

// =============================================================================
// Run Tests
// =============================================================================

func TestBeginRun_AndGet(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()

	run := beginTestRun(t, j)

	retrieved, err := j.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, retrieved.ID)
	assert.Equal(t, "local", retrieved.Target)
	assert.Equal(t, RunStatusRunning, retrieved.Status)
	assert.Nil(t, retrieved.FinishedAt)
}

func TestBeginRun_DuplicateID(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()

	run := beginTestRun(t, j)

	err := j.BeginRun(ctx, &Run{ID: run.ID, Target: "local", StartedAt: time.Now()})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestFinishRun(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()

	run := beginTestRun(t, j)
	finished := time.Now().UTC()

	require.NoError(t, j.FinishRun(ctx, run.ID, RunStatusSucceeded, finished))

	retrieved, err := j.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusSucceeded, retrieved.Status)
	require.NotNil(t, retrieved.FinishedAt)
	assert.WithinDuration(t, finished, *retrieved.FinishedAt, time.Second)
}

func TestFinishRun_NotFound(t *testing.T) {
	j := setupTestJournal(t)

	err := j.FinishRun(context.Background(), "no-such-run", RunStatusFailed, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestGetRun_NotFound(t *testing.T) {
	j := setupTestJournal(t)

	_, err := j.GetRun(context.Background(), "no-such-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

// =============================================================================
// Step Tests
// =============================================================================

func TestRecordStep_AndList(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()

	run := beginTestRun(t, j)

	steps := []StepRecord{
		{RunID: run.ID, Seq: 1, StepID: "preflight", Label: "Preflight checks", Status: plan.StatusOK, Duration: 5 * time.Millisecond},
		{RunID: run.ID, Seq: 2, StepID: "docker", Label: "Installing Docker-CE", Status: plan.StatusSkipped, Message: "already installed"},
		{RunID: run.ID, Seq: 3, StepID: "proxy", Label: "Deploying proxy manager", Status: plan.StatusFailed, Message: "exit status 1", Duration: 2 * time.Second},
	}
	for i := range steps {
		require.NoError(t, j.RecordStep(ctx, &steps[i]))
	}

	listed, err := j.ListSteps(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)

	assert.Equal(t, "preflight", listed[0].StepID)
	assert.Equal(t, plan.StatusOK, listed[0].Status)

	assert.Equal(t, plan.StatusSkipped, listed[1].Status)
	assert.Equal(t, "already installed", listed[1].Message)

	assert.Equal(t, plan.StatusFailed, listed[2].Status)
	assert.Equal(t, 2*time.Second, listed[2].Duration)
}

func TestListSteps_EmptyRun(t *testing.T) {
	j := setupTestJournal(t)

	run := beginTestRun(t, j)

	listed, err := j.ListSteps(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

// =============================================================================
// ListRuns Tests
// =============================================================================

func TestListRuns_NewestFirst(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()

	older := &Run{ID: uuid.NewString(), Target: "local", StartedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, j.BeginRun(ctx, older))

	newer := &Run{ID: uuid.NewString(), Target: "ssh://10.0.0.5", StartedAt: time.Now()}
	require.NoError(t, j.BeginRun(ctx, newer))

	runs, err := j.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)
}
