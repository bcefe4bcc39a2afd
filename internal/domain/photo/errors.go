package photo

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrNotFound indicates a record id could not be resolved (never loaded,
	// genuinely absent, or removed).
	ErrNotFound = errors.New("record not found")

	// ErrTemporaryFailure indicates a transient remote failure (should retry).
	ErrTemporaryFailure = errors.New("temporary failure")
)

// BulkError collects per-id failures from a bulk mutation. Ids that succeeded
// keep their optimistic cache patches.
type BulkError struct {
	Failures map[string]error
}

// Error implements the error interface.
func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk mutation failed for %d item(s)", len(e.Failures))
}

// Add records a per-id failure.
func (e *BulkError) Add(fileID string, err error) {
	if e.Failures == nil {
		e.Failures = make(map[string]error)
	}
	e.Failures[fileID] = err
}

// OrNil returns the error itself when any failure was recorded, nil otherwise.
func (e *BulkError) OrNil() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e
}
