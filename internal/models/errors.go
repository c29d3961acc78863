package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a record does not exist
var ErrNotFound = errors.New("record not found")

// ErrStaleVersion is returned by stores when an update carries an outdated version
var ErrStaleVersion = errors.New("record was modified by another request")

// ValidationError reports malformed, missing or out-of-range input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidStateError reports an operation the position's current status forbids
type InvalidStateError struct {
	PositionID int
	Status     string
	Op         string
	Err        error
}

func (e *InvalidStateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot %s position %d (status %s): %v", e.Op, e.PositionID, e.Status, e.Err)
	}
	return fmt.Sprintf("cannot %s position %d in status %s", e.Op, e.PositionID, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return e.Err }

// NotFoundError reports a missing (or foreign) record
type NotFoundError struct {
	Kind string
	ID   int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PartialRollFailure reports that the predecessor was closed as rolled but the
// successor could not be created. Retry with the same terms keyed on PredecessorID.
type PartialRollFailure struct {
	PredecessorID int
	Terms         RollTerms
	Err           error
}

func (e *PartialRollFailure) Error() string {
	return fmt.Sprintf("position %d rolled but successor not created: %v", e.PredecessorID, e.Err)
}

func (e *PartialRollFailure) Unwrap() error { return e.Err }

// DependencyError wraps a failure of the store or another collaborator
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }
