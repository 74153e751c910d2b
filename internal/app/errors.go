package app

import (
	"errors"
	"fmt"
)

// ErrorCode represents standardized error codes for the application.
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeConfig
	ErrCodeStore
	ErrCodeUI
)

// AppError is a typed error with code for better error handling.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error with code.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ExitCode maps err to a process exit status: 0 for nil, 2 for configuration
// problems and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code == ErrCodeConfig {
		return 2
	}
	return 1
}
