package apperr

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures across the booking pipeline
type ErrorType string

const (
	// ErrorTypeServiceUnavailable indicates the extraction backend is not configured or unreachable
	ErrorTypeServiceUnavailable ErrorType = "SERVICE_UNAVAILABLE"

	// ErrorTypeParseFailure indicates model output was not valid structured data
	ErrorTypeParseFailure ErrorType = "PARSE_FAILURE"

	// ErrorTypeSelectorMiss indicates an expected UI element was absent on the page
	ErrorTypeSelectorMiss ErrorType = "SELECTOR_MISS"

	// ErrorTypeMisclassification indicates the result page matched more than one outcome bucket
	ErrorTypeMisclassification ErrorType = "MISCLASSIFICATION"

	// ErrorTypeNavigationTimeout indicates a bounded wait for a page element elapsed
	ErrorTypeNavigationTimeout ErrorType = "NAVIGATION_TIMEOUT"

	// ErrorTypeValidation indicates a bad request from the caller
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeUnauthorized indicates missing or rejected portal credentials
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeInternal indicates an unexpected failure
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError carries a typed failure through the pipeline
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

func New(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

// NewServiceUnavailable creates an error for a missing or unreachable extraction backend
func NewServiceUnavailable(message string, err error) *AppError {
	return New(ErrorTypeServiceUnavailable, message, err)
}

// NewParseFailure creates an error for unparseable model output
func NewParseFailure(message string, err error) *AppError {
	return New(ErrorTypeParseFailure, message, err)
}

// NewSelectorMiss creates an error for a UI element that could not be found
func NewSelectorMiss(message string) *AppError {
	return New(ErrorTypeSelectorMiss, message, nil)
}

// NewMisclassification creates an error for a result page that fits more
// than one outcome
func NewMisclassification(message string) *AppError {
	return New(ErrorTypeMisclassification, message, nil)
}

// NewNavigationTimeout creates an error for an elapsed bounded wait
func NewNavigationTimeout(message string, err error) *AppError {
	return New(ErrorTypeNavigationTimeout, message, err)
}

// NewValidation creates a validation error
func NewValidation(message string) *AppError {
	return New(ErrorTypeValidation, message, nil)
}

// NewUnauthorized creates an unauthorized error
func NewUnauthorized(message string) *AppError {
	return New(ErrorTypeUnauthorized, message, nil)
}

// NewInternal creates an internal error
func NewInternal(message string, err error) *AppError {
	return New(ErrorTypeInternal, message, err)
}

// Is reports whether any error in err's chain is an AppError of type t
func Is(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// MessageOf returns the caller-facing message of the first AppError in err's
// chain, without its type or cause. Other errors are returned as is.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// TypeOf returns the type of the first AppError in err's chain, or ErrorTypeInternal
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}
