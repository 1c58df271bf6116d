// Package errors defines the structured error type returned by ctxbridge
// operations that talk to the knowledge service or validate user input.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a class of ctxbridge failure.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrServiceError       ErrorCode = "SERVICE_ERROR"       // upstream non-2xx
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE" // 503
	ErrInternal           ErrorCode = "INTERNAL"            // 500
)

// BridgeError is a structured error with a code, an HTTP-like status and
// optional details for callers that render errors as JSON.
type BridgeError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *BridgeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *BridgeError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates a 400 error for bad input.
func NewInvalidRequest(msg string) *BridgeError {
	return &BridgeError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for an unknown resource such as an
// extension id.
func NewNotFound(kind, identifier string) *BridgeError {
	return &BridgeError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewServiceUnavailable wraps a transport failure talking to the knowledge
// service.
func NewServiceUnavailable(endpoint string, cause error) *BridgeError {
	msg := fmt.Sprintf("knowledge service unreachable at %s", endpoint)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &BridgeError{
		Code:    ErrServiceUnavailable,
		Status:  503,
		Message: msg,
		Details: map[string]any{"endpoint": endpoint},
		Cause:   cause,
	}
}

// NewServiceError reports a non-2xx answer from the knowledge service.
func NewServiceError(endpoint string, status int, body string) *BridgeError {
	return &BridgeError{
		Code:    ErrServiceError,
		Status:  status,
		Message: fmt.Sprintf("knowledge service returned %d for %s", status, endpoint),
		Details: map[string]any{"endpoint": endpoint, "body": body},
	}
}

// NewInternal creates a 500 error for unexpected failures.
func NewInternal(err error) *BridgeError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &BridgeError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// Is reports whether err is, or wraps, a BridgeError with the given code.
func Is(err error, code ErrorCode) bool {
	var bErr *BridgeError
	if stderrors.As(err, &bErr) {
		return bErr.Code == code
	}
	return false
}
