// Package apperror defines the domain error kinds shared by every layer.
//
// Services return these errors; the HTTP layer maps them to status codes.
// Each AppError wraps one of the sentinel kinds below, so callers test the
// kind with errors.Is and read the human-readable message with errors.As.
package apperror

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrTooManyRequests = errors.New("too many requests")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Err     error        // actual error
	Message string       // Human-readable error message
	Field   string       // Optional: field causing the error
	Fields  []FieldError // Optional: every invalid field, for request validation

	// RetryAfter is only set for ErrTooManyRequests.
	RetryAfter time.Duration
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// InvalidFields reports several field errors at once. The first field's
// message becomes the error message.
func InvalidFields(fields []FieldError) *AppError {
	msg := "invalid request"
	field := ""
	if len(fields) > 0 {
		msg = fields[0].Message
		field = fields[0].Field
	}
	return &AppError{
		Err:     ErrValidation,
		Message: msg,
		Field:   field,
		Fields:  fields,
	}
}

// Conflict reports that a resource identified by key already exists or is
// in a state that forbids the operation.
func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict on %s", resource, key),
	}
}

// ConflictMessage is Conflict with a caller-supplied message.
func ConflictMessage(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError for failed authentication.
// HTTP handlers map this to 401 Unauthorized.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// TooManyRequests returns an AppError carrying how long the caller must wait.
func TooManyRequests(message string, retryAfter time.Duration) *AppError {
	return &AppError{
		Err:        ErrTooManyRequests,
		Message:    message,
		RetryAfter: retryAfter,
	}
}
