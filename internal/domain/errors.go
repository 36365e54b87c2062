package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound means the entity does not exist. It is a valid outcome, not a failure.
	ErrNotFound = errors.New("not found")
	// ErrCallerFault means the identifier was rejected as malformed by the owner.
	ErrCallerFault = errors.New("malformed identifier")
	// ErrPersistence means the order store did not return a record.
	ErrPersistence = errors.New("operation failed")
)

// ValidationError lists every rule a write request violated.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Errors, ", ")
}

func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Errors: msgs}
}
