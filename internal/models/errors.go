package models

import (
	"errors"
	"fmt"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	ErrorCodeInvalidField        ErrorCode = "INVALID_FIELD"
	ErrorCodeMissingField        ErrorCode = "MISSING_FIELD"
	ErrorCodeInvalidFormat       ErrorCode = "INVALID_FORMAT"
	ErrorCodeInsufficientStock   ErrorCode = "INSUFFICIENT_STOCK"
	ErrorCodeReservationNotFound ErrorCode = "RESERVATION_NOT_FOUND"
	ErrorCodeBikeNotFound        ErrorCode = "BIKE_NOT_FOUND"
	ErrorCodeSessionRequired     ErrorCode = "SESSION_REQUIRED"
	ErrorCodeInvalidState        ErrorCode = "INVALID_STATE"
	ErrorCodeWriteConflict       ErrorCode = "WRITE_CONFLICT"
	ErrorCodeInternalError       ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidationError     ErrorCode = "VALIDATION_ERROR"
	ErrorCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrorCodeDatabaseError       ErrorCode = "DATABASE_ERROR"
	ErrorCodeCacheError          ErrorCode = "CACHE_ERROR"
	ErrorCodeEventingError       ErrorCode = "EVENTING_ERROR"
)

// ValidationError represents validation errors with detailed field information
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Value   any    `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// BusinessError represents booking rule violations
type BusinessError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// SystemError represents system-level errors (database, cache, broker)
type SystemError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Component string    `json:"component"`
}

func (e *SystemError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s in %s: %s (caused by: %v)", e.Code, e.Component, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s in %s: %s", e.Code, e.Component, e.Message)
}

func (e *SystemError) Unwrap() error {
	return e.Cause
}

// NotFoundError represents resource not found errors
type NotFoundError struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
}

// ConflictError represents a write that lost against a concurrent change
type ConflictError struct {
	Resource string `json:"resource"`
	Reason   string `json:"reason"`
	Cause    error  `json:"-"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict with %s: %s", e.Resource, e.Reason)
}

func (e *ConflictError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string, value any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

func NewBusinessError(code ErrorCode, message string, details any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

func NewSystemError(code ErrorCode, component, message string, cause error) *SystemError {
	return &SystemError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Component: component,
	}
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

func NewConflictError(resource, reason string, cause error) *ConflictError {
	return &ConflictError{
		Resource: resource,
		Reason:   reason,
		Cause:    cause,
	}
}

// Error type guards. They look through wrapped errors.

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsBusinessError(err error) bool {
	var target *BusinessError
	return errors.As(err, &target)
}

func IsSystemError(err error) bool {
	var target *SystemError
	return errors.As(err, &target)
}

func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflictError(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// GetErrorCode extracts error code from various error types
func GetErrorCode(err error) ErrorCode {
	var (
		validationErr *ValidationError
		businessErr   *BusinessError
		systemErr     *SystemError
		notFoundErr   *NotFoundError
		conflictErr   *ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		return ErrorCodeValidationError
	case errors.As(err, &businessErr):
		return businessErr.Code
	case errors.As(err, &systemErr):
		return systemErr.Code
	case errors.As(err, &notFoundErr):
		switch notFoundErr.Resource {
		case "Bike":
			return ErrorCodeBikeNotFound
		case "Reservation":
			return ErrorCodeReservationNotFound
		}
		return ErrorCodeNotFound
	case errors.As(err, &conflictErr):
		return ErrorCodeWriteConflict
	default:
		return ErrorCodeInternalError
	}
}
