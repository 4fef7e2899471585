package types

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of failure.
type ErrorCode string

const (
	// ErrInvalidInput is returned for item lists the wheel cannot spin
	// (empty, or containing duplicate ids).
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrInvalidState is returned when an operation does not apply to the
	// current session state.
	ErrInvalidState ErrorCode = "INVALID_STATE"
	// ErrValidation is returned when records submitted to a repository are malformed.
	ErrValidation ErrorCode = "VALIDATION"
	// ErrIO wraps any storage or boundary call failure.
	ErrIO ErrorCode = "IO"
	// ErrNotFound is returned for unknown sessions, blobs or stores.
	ErrNotFound ErrorCode = "NOT_FOUND"
)

// Error is the application error type. It carries a code for callers that
// need to branch (the HTTP layer maps codes to status codes) and an optional
// underlying cause.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message
func Errorf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error in an Error
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsCode reports whether err (or anything it wraps) is an Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// CodeOf returns the code of the outermost Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
