package auditlog

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingData is returned when the snapshot an action requires is empty.
	ErrMissingData = errors.New("auditlog: missing data")
	// ErrInconsistentSnapshot is returned when a changed field has no previous value.
	ErrInconsistentSnapshot = errors.New("auditlog: inconsistent snapshot")
	// ErrUnknownAction is returned for actions outside the supported set.
	ErrUnknownAction = errors.New("auditlog: unknown action")
	// ErrNilStore is returned by New when no store is supplied.
	ErrNilStore = errors.New("auditlog: store cannot be nil")
)

// PersistError wraps a failure reported by a Store.
type PersistError struct {
	Model  string
	Action Action
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("auditlog: failed to persist %s %s: %v", e.Model, e.Action, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
