package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrValidation    = errors.New("validation failed")
	ErrDatabase      = errors.New("database error")
	ErrNotAppendOnly = errors.New("training corpus is append-only")
)

// File preconditions. These are the only errors the extraction entry point
// surfaces to its caller.
var (
	ErrNoFile       = errors.New("no file selected")
	ErrFileNotFound = errors.New("file failed to save")
	ErrEmptyFile    = errors.New("saved file is empty (0 bytes)")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsPrecondition reports whether err is one of the file precondition failures.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNoFile) || errors.Is(err, ErrFileNotFound) || errors.Is(err, ErrEmptyFile)
}
