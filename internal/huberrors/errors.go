// Package huberrors provides sentinel and custom error types for the application.
package huberrors

import "time"

// ErrNotFound represents a "not found" error.
// Use when a requested resource doesn't exist.
var ErrNotFound = &NotFoundError{}

// NotFoundError is a sentinel error for resources that are not found.
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new NotFoundError with a custom message.
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Resource != "" {
		return e.Resource + " not found"
	}

	return "resource not found"
}

// Is implements the error interface for error comparison.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)

	return ok
}

// ErrValidation represents a validation error.
// Use when client input fails validation.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// ErrLimitExceeded is the sentinel for limit-exceeded errors (e.g. per-caller request rate).
var ErrLimitExceeded = &LimitExceededError{}

// LimitExceededError is a sentinel error for limit-exceeded conditions.
// RetryAfter, when positive, is how long the caller should wait before retrying.
type LimitExceededError struct {
	Message    string
	RetryAfter time.Duration
}

// NewLimitExceededError creates a LimitExceededError with a custom message.
func NewLimitExceededError(message string, retryAfter time.Duration) *LimitExceededError {
	return &LimitExceededError{Message: message, RetryAfter: retryAfter}
}

// Error implements the error interface.
func (e *LimitExceededError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "limit exceeded"
}

// Is implements the error interface for error comparison.
func (e *LimitExceededError) Is(target error) bool {
	_, ok := target.(*LimitExceededError)

	return ok
}

// ErrUnauthenticated is the sentinel for missing or invalid credentials.
var ErrUnauthenticated = &UnauthenticatedError{}

// UnauthenticatedError is returned when a credential cannot be resolved to an attendee.
type UnauthenticatedError struct {
	Message string
}

// NewUnauthenticatedError creates an UnauthenticatedError with a custom message.
func NewUnauthenticatedError(message string) *UnauthenticatedError {
	return &UnauthenticatedError{Message: message}
}

// Error implements the error interface.
func (e *UnauthenticatedError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "unauthenticated"
}

// Is implements the error interface for error comparison.
func (e *UnauthenticatedError) Is(target error) bool {
	_, ok := target.(*UnauthenticatedError)

	return ok
}

// ErrForbidden is the sentinel for authenticated callers acting outside their scope
// (e.g. not a member of the conference).
var ErrForbidden = &ForbiddenError{}

// ForbiddenError is returned when the caller is authenticated but not allowed.
type ForbiddenError struct {
	Message string
}

// NewForbiddenError creates a ForbiddenError with a custom message.
func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

// Error implements the error interface.
func (e *ForbiddenError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "forbidden"
}

// Is implements the error interface for error comparison.
func (e *ForbiddenError) Is(target error) bool {
	_, ok := target.(*ForbiddenError)

	return ok
}
