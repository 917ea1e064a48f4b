package contextmgr

import (
	"errors"
	"fmt"
)

// Sentinel errors for context operations.
var (
	// ErrAnchorNotFound indicates the anchor matched no message ID or
	// tool-call ID in the transcript.
	ErrAnchorNotFound = errors.New("anchor not found")

	// ErrEmptyTranscript indicates the transcript has no messages.
	ErrEmptyTranscript = errors.New("transcript is empty")

	// ErrManagerClosed indicates a mutation was attempted after Close.
	ErrManagerClosed = errors.New("context manager is closed")
)

// Error wraps context-manager errors with the task and operation that failed.
type Error struct {
	TaskID string // Task that owns the transcript
	Op     string // Operation that failed ("remove", "persist")
	Err    error  // Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("task %s: %s: %v", e.TaskID, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsCallerError reports whether the error was caused by caller input and is
// not worth retrying with the same arguments.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrAnchorNotFound) || errors.Is(err, ErrEmptyTranscript)
}
