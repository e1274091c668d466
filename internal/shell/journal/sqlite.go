package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/dockhand/internal/core/plan"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteJournal
// =============================================================================

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sqlx.DB
}

// NewSQLiteJournal opens the journal database and runs migrations.
func NewSQLiteJournal(dsn string) (*SQLiteJournal, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewJournalError("NewSQLiteJournal", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewJournalError("NewSQLiteJournal", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewJournalError("NewSQLiteJournal", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteJournal{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// =============================================================================
// Row Types
// =============================================================================

type runRow struct {
	ID         string  `db:"id"`
	Target     string  `db:"target"`
	Status     string  `db:"status"`
	StartedAt  string  `db:"started_at"`
	FinishedAt *string `db:"finished_at"`
}

func (r runRow) toRun() (Run, error) {
	started, err := time.Parse(time.RFC3339Nano, r.StartedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}

	run := Run{
		ID:        r.ID,
		Target:    r.Target,
		Status:    r.Status,
		StartedAt: started,
	}

	if r.FinishedAt != nil && *r.FinishedAt != "" {
		finished, err := time.Parse(time.RFC3339Nano, *r.FinishedAt)
		if err != nil {
			return Run{}, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &finished
	}

	return run, nil
}

type stepRow struct {
	RunID      string `db:"run_id"`
	Seq        int    `db:"seq"`
	StepID     string `db:"step_id"`
	Label      string `db:"label"`
	Status     string `db:"status"`
	Message    string `db:"message"`
	DurationMS int64  `db:"duration_ms"`
}

// =============================================================================
// Journal Operations
// =============================================================================

// BeginRun records a new run in the running state.
func (j *SQLiteJournal) BeginRun(ctx context.Context, run *Run) error {
	status := run.Status
	if status == "" {
		status = RunStatusRunning
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, target, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Target, status, run.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return NewJournalError("BeginRun", run.ID, "run already exists", ErrDuplicateID)
		}
		return NewJournalError("BeginRun", run.ID, err.Error(), err)
	}
	return nil
}

// RecordStep appends a step outcome to a run.
func (j *SQLiteJournal) RecordStep(ctx context.Context, record *StepRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO run_steps (run_id, seq, step_id, label, status, message, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.RunID, record.Seq, record.StepID, record.Label,
		string(record.Status), record.Message, record.Duration.Milliseconds(),
	)
	if err != nil {
		return NewJournalError("RecordStep", record.RunID, err.Error(), err)
	}
	return nil
}

// FinishRun marks the run's terminal status and finish time.
func (j *SQLiteJournal) FinishRun(ctx context.Context, runID, status string, finishedAt time.Time) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, finishedAt.UTC().Format(time.RFC3339Nano), runID,
	)
	if err != nil {
		return NewJournalError("FinishRun", runID, err.Error(), err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return NewJournalError("FinishRun", runID, err.Error(), err)
	}
	if affected == 0 {
		return NewJournalError("FinishRun", runID, "run not found", ErrRunNotFound)
	}
	return nil
}

// GetRun returns a run by ID.
func (j *SQLiteJournal) GetRun(ctx context.Context, runID string) (*Run, error) {
	var row runRow
	err := j.db.GetContext(ctx, &row, `SELECT * FROM runs WHERE id = ?`, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewJournalError("GetRun", runID, "run not found", ErrRunNotFound)
		}
		return nil, NewJournalError("GetRun", runID, err.Error(), err)
	}

	run, err := row.toRun()
	if err != nil {
		return nil, NewJournalError("GetRun", runID, err.Error(), err)
	}
	return &run, nil
}

// ListSteps returns a run's steps in execution order.
func (j *SQLiteJournal) ListSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	var rows []stepRow
	err := j.db.SelectContext(ctx, &rows,
		`SELECT * FROM run_steps WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, NewJournalError("ListSteps", runID, err.Error(), err)
	}

	records := make([]StepRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, StepRecord{
			RunID:    r.RunID,
			Seq:      r.Seq,
			StepID:   r.StepID,
			Label:    r.Label,
			Status:   plan.Status(r.Status),
			Message:  r.Message,
			Duration: time.Duration(r.DurationMS) * time.Millisecond,
		})
	}
	return records, nil
}

// ListRuns returns the most recent runs, newest first.
func (j *SQLiteJournal) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []runRow
	err := j.db.SelectContext(ctx, &rows,
		`SELECT * FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, NewJournalError("ListRuns", "", err.Error(), err)
	}

	runs := make([]Run, 0, len(rows))
	for _, r := range rows {
		run, err := r.toRun()
		if err != nil {
			return nil, NewJournalError("ListRuns", r.ID, err.Error(), err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}
