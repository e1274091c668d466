package run

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// =============================================================================
// Transcript - Append-Only Install Log
// =============================================================================

// Transcript is the append-only log file that receives the combined output
// of every command a run executes. The operator-facing step lines stay on
// stdout; failures point here for the full detail.
type Transcript struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// OpenTranscript opens (creating if needed) the transcript at path.
func OpenTranscript(path string) (*Transcript, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, NewRunError("OpenTranscript", "", fmt.Sprintf("create log directory: %v", err), err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, NewRunError("OpenTranscript", "", fmt.Sprintf("open log file: %v", err), err)
	}

	return &Transcript{path: path, file: file}, nil
}

// Path returns the transcript file path.
func (t *Transcript) Path() string {
	return t.path
}

// Write appends to the transcript. Safe for concurrent use.
func (t *Transcript) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Write(p)
}

// Heading writes a timestamped section heading before a command's output.
func (t *Transcript) Heading(text string) {
	fmt.Fprintf(t, "\n--- %s %s\n", time.Now().Format(time.RFC3339), text)
}

// Close closes the underlying file.
func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}

// interface check
var _ io.Writer = (*Transcript)(nil)
