package composefile

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrInvalidParams means the parameter struct cannot produce a valid descriptor.
	ErrInvalidParams = errors.New("invalid descriptor parameters")

	// ErrInvalidYAML means the descriptor content is not valid YAML.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrInvalidDescriptor means the descriptor fails Compose validation.
	ErrInvalidDescriptor = errors.New("invalid compose descriptor")
)

// RenderError wraps errors with context about which field failed.
type RenderError struct {
	Field   string
	Message string
	Err     error
}

func (e *RenderError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// NewRenderError creates a new RenderError.
func NewRenderError(field, message string, err error) *RenderError {
	return &RenderError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
