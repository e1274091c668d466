package journal

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	ErrRunNotFound      = errors.New("run not found")
	ErrDuplicateID      = errors.New("duplicate run ID")
	ErrConnectionFailed = errors.New("journal connection failed")
	ErrMigrationFailed  = errors.New("journal migration failed")
)

// JournalError wraps errors with operation context.
type JournalError struct {
	Op      string
	RunID   string
	Message string
	Err     error
}

func (e *JournalError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s run %s: %s", e.Op, e.RunID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *JournalError) Unwrap() error {
	return e.Err
}

// NewJournalError creates a new JournalError.
func NewJournalError(op, runID, message string, err error) *JournalError {
	return &JournalError{
		Op:      op,
		RunID:   runID,
		Message: message,
		Err:     err,
	}
}
