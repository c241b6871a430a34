// Package errors provides the error taxonomy shared by every component of the client.
//
// Every failure returned by this module is an *Error carrying one of a closed set of codes:
//   - ErrCodeAuthentication: the token endpoint rejected the credentials
//   - ErrCodeParse: a response body or stream frame could not be decoded
//   - ErrCodeHTTP: the server answered with a non-2xx status
//   - ErrCodeTimeout: retries were exhausted or a connection was lost
//   - ErrCodeInternal: a programming or deployment defect
//   - ErrCodeSerialization: a request could not be encoded
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInternal, "request body cannot be replayed")
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeParse, "failed to decode order", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeHTTP) { ... }
//
//	// Inspect an HTTP failure
//	if status, ok := errors.StatusCode(err); ok && status == http.StatusNotFound { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsAuthentication reports whether err is an authentication failure.
func IsAuthentication(err error) bool { return HasCode(err, ErrCodeAuthentication) }

// IsParse reports whether err is a decode failure.
func IsParse(err error) bool { return HasCode(err, ErrCodeParse) }

// IsHTTP reports whether err is a non-2xx response.
func IsHTTP(err error) bool { return HasCode(err, ErrCodeHTTP) }

// IsTimeout reports whether err is an exhausted retry budget or a lost connection.
func IsTimeout(err error) bool { return HasCode(err, ErrCodeTimeout) }

// IsInternal reports whether err is a programming or deployment defect.
func IsInternal(err error) bool { return HasCode(err, ErrCodeInternal) }

// IsSerialization reports whether err is a request encoding failure.
func IsSerialization(err error) bool { return HasCode(err, ErrCodeSerialization) }

// StatusError carries the status line and body of a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

// NewStatusError creates a new StatusError.
func NewStatusError(statusCode int, body string) *StatusError {
	return &StatusError{
		StatusCode: statusCode,
		Body:       body,
	}
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("Error: %d - %s", e.StatusCode, e.Body)
}

// NewHTTPError creates an ErrCodeHTTP error for the given response status and body.
func NewHTTPError(statusCode int, body string) *Error {
	return Wrap(ErrCodeHTTP, "unexpected response status", NewStatusError(statusCode, body))
}

// StatusCode returns the HTTP status carried anywhere in err's chain.
func StatusCode(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}

	return 0, false
}
