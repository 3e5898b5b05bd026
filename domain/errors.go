package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeValidation        ErrorCode = "VALIDATION"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal          ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewValidation reports a violated entity invariant.
func NewValidation(format string, args ...interface{}) *Error {
	return &Error{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidTransition reports a state-machine edge that does not exist.
// Callers leave the entity unchanged when this is returned.
func NewInvalidTransition(from, to string) *Error {
	return &Error{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("invalid transition: %s -> %s", from, to),
	}
}

// NewForbidden reports an RBAC rule violation, naming the violated rule.
func NewForbidden(rule, format string, args ...interface{}) *Error {
	return &Error{
		Code:    ErrCodeForbidden,
		Message: fmt.Sprintf("%s: %s", rule, fmt.Sprintf(format, args...)),
	}
}

// Common domain errors.
var (
	ErrUserNotFound       = NewError(ErrCodeNotFound, "user not found")
	ErrTicketNotFound     = NewError(ErrCodeNotFound, "ticket not found")
	ErrDatasetNotFound    = NewError(ErrCodeNotFound, "dataset not found")
	ErrDatasetRowNotFound = NewError(ErrCodeNotFound, "dataset row not found")
	ErrReplyNotFound      = NewError(ErrCodeNotFound, "reply not found")
	ErrAttachmentNotFound = NewError(ErrCodeNotFound, "attachment not found")
	ErrSessionNotFound    = NewError(ErrCodeNotFound, "session not found")
	ErrUnauthorized       = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload     = NewError(ErrCodeValidation, "invalid payload")
	ErrUsernameTaken      = NewError(ErrCodeConflict, "username already in use")
	ErrEmailTaken         = NewError(ErrCodeConflict, "email already in use")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
