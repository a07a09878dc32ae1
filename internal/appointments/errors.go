package appointments

import (
	"errors"
	"fmt"
)

const (
	ReasonMissingField = "missing required field"
	ReasonInvalidDate  = "invalid date"
	ReasonInvalidTime  = "invalid time"
)

// ErrNoProviderAvailable is returned when the catalog has no active provider.
var ErrNoProviderAvailable = errors.New("no provider available")

// ValidationError reports a rejected booking request.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// PersistenceError wraps a failed store operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("appointments: %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
