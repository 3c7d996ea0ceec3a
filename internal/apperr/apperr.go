// Package apperr defines the error taxonomy shared by services, repositories
// and the HTTP layer. Every business-rule violation carries a machine-readable
// code and the HTTP status it maps to; the HTTP contract wrapper is the single
// place errors are converted into response envelopes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced in the response envelope.
const (
	CodeValidation          = "VALIDATION"
	CodeBadRequest          = "BAD_REQUEST"
	CodeIdempotencyRequired = "IDEMPOTENCY_REQUIRED"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeNotFound            = "NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
	CodeNoRule              = "NO_RULE"
	CodeNotPending          = "NOT_PENDING"
	CodeEmployeeNotFound    = "EMPLOYEE_NOT_FOUND"
	CodeActorNotFound       = "ACTOR_NOT_FOUND"
	CodeDBError             = "DB_ERROR"
	CodeRPCError            = "RPC_ERROR"
)

var statusByCode = map[string]int{
	CodeValidation:          http.StatusBadRequest,
	CodeBadRequest:          http.StatusBadRequest,
	CodeIdempotencyRequired: http.StatusBadRequest,
	CodeMethodNotAllowed:    http.StatusMethodNotAllowed,
	CodeNotFound:            http.StatusNotFound,
	CodeForbidden:           http.StatusForbidden,
	CodeNoRule:              http.StatusBadRequest,
	CodeNotPending:          http.StatusBadRequest,
	CodeEmployeeNotFound:    http.StatusNotFound,
	CodeActorNotFound:       http.StatusNotFound,
	CodeDBError:             http.StatusInternalServerError,
	CodeRPCError:            http.StatusInternalServerError,
}

// Error is an application error with an attached code and HTTP status.
type Error struct {
	Code    string
	Message string
	Status  int
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an error with the status implied by its code (default 400).
func New(code, message string) *Error {
	return &Error{Code: code, Message: message, Status: statusFor(code)}
}

// Wrap attaches a code and message to an underlying error, preserving it for
// errors.Is/As while keeping persistence internals out of the client message.
func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, Status: statusFor(code), cause: err}
}

// NotFound reports a missing resource.
func NotFound(resource string, id any) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
		Status:  http.StatusNotFound,
	}
}

// InvalidInput reports a malformed or missing request field.
func InvalidInput(field, message string) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: fmt.Sprintf("%s: %s", field, message),
		Status:  http.StatusBadRequest,
	}
}

// Forbidden reports an actor acting outside their authority.
func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message, Status: http.StatusForbidden}
}

// From extracts the *Error from err, or wraps unknown errors as a generic
// client error (default 400, matching the contract's error fallback).
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Code: CodeBadRequest, Message: err.Error(), Status: http.StatusBadRequest}
}

// CodeOf returns the code attached to err, or empty when err carries none.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func statusFor(code string) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusBadRequest
}
