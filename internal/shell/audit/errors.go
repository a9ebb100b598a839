// Package audit persists rollout audit trails in SQLite.
package audit

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when an audit record does not exist.
	ErrNotFound = errors.New("audit record not found")

	// ErrConnectionFailed is returned when the database cannot be opened.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrMigrationFailed is returned when database migration fails.
	ErrMigrationFailed = errors.New("database migration failed")

	// ErrInvalidData is returned when JSON serialization fails.
	ErrInvalidData = errors.New("invalid data format")
)

// StoreError wraps audit store errors with operation context.
type StoreError struct {
	Op           string
	DeploymentID string
	Message      string
	Err          error
}

func (e *StoreError) Error() string {
	if e.DeploymentID != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.DeploymentID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func newStoreError(op, deploymentID, message string, err error) *StoreError {
	return &StoreError{
		Op:           op,
		DeploymentID: deploymentID,
		Message:      message,
		Err:          err,
	}
}
