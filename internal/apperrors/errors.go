package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrPersistence indicates that the backing record store rejected or failed a write.
var ErrPersistence = errors.New("persistence error")

// ErrHierarchyAssignment indicates a level/parent combination that the hierarchy rules forbid.
var ErrHierarchyAssignment = errors.New("invalid hierarchy assignment")

// ErrImportEmpty indicates that no importable rows were left after filtering.
// It is also a validation error.
var ErrImportEmpty = fmt.Errorf("%w: no valid rows to import", ErrValidation)

// AppError carries an HTTP-ish status code alongside the wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError builds an AppError wrapping err.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}
