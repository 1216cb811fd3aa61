package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError captures configuration or flag validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError represents a mutating action that returned a failure.
// The failure is recorded against the resource and never retried.
type ExecutionError struct {
	Resource string
	Err      error
}

// NewExecutionError constructs an ExecutionError for the given resource.
func NewExecutionError(resource string, err error) error {
	return &ExecutionError{Resource: resource, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Resource != "" {
		return fmt.Sprintf("execution error on %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("execution error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StateError means a read-only probe could not determine the current state.
// Callers treat it as "cannot determine", warn, and skip the operation
// rather than guessing.
type StateError struct {
	Resource string
	Err      error
}

// NewStateError constructs a StateError for the given resource.
func NewStateError(resource string, err error) error {
	return &StateError{Resource: resource, Err: err}
}

func (e *StateError) Error() string {
	if e == nil {
		return ""
	}
	if e.Resource != "" {
		return fmt.Sprintf("cannot determine state of %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("cannot determine state: %v", e.Err)
}

// Unwrap exposes the underlying error.
func (e *StateError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NotFoundError means a required input artifact is absent. It aborts only
// the operation that needed the artifact.
type NotFoundError struct {
	Artifact string
	Searched []string
}

// NewNotFoundError constructs a NotFoundError.
func NewNotFoundError(artifact string, searched []string) error {
	return &NotFoundError{Artifact: artifact, Searched: searched}
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Searched) > 0 {
		return fmt.Sprintf("%s not found (searched %d locations: %s)", e.Artifact, len(e.Searched), strings.Join(e.Searched, ", "))
	}
	return fmt.Sprintf("%s not found", e.Artifact)
}

// CorruptionError means post-write verification failed. The backup path is
// always carried so the user can restore the original content.
type CorruptionError struct {
	Path       string
	BackupPath string
	Err        error
}

// NewCorruptionError constructs a CorruptionError.
func NewCorruptionError(path, backupPath string, err error) error {
	return &CorruptionError{Path: path, BackupPath: backupPath, Err: err}
}

func (e *CorruptionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("post-write verification failed for %s (backup preserved at %s): %v", e.Path, e.BackupPath, e.Err)
}

// Unwrap exposes the underlying error.
func (e *CorruptionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsState reports whether err is (or wraps) a StateError.
func IsState(err error) bool {
	var state *StateError
	return errors.As(err, &state)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
