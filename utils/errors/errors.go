package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError represents a custom error type for API responses and client failures
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`

	cause error
}

// Error returns the error message
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any APIError carrying the same code, so sentinels work with errors.Is.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

func (e *APIError) Unwrap() error {
	return e.cause
}

func NewAPIError(code, message string, status int, details ...string) *APIError {
	err := &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeTransport        = "TRANSPORT_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeUnauthorized     = "UNAUTHORIZED"
)

var (
	ErrInvalidInput     = NewAPIError("INVALID_INPUT", "Invalid request data", http.StatusBadRequest)
	ErrUnauthorized     = NewAPIError(CodeUnauthorized, "Authentication required", http.StatusUnauthorized)
	ErrNotFound         = NewAPIError(CodeNotFound, "Resource not found", http.StatusNotFound)
	ErrInternal         = NewAPIError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrConflict         = NewAPIError("CONFLICT", "Resource conflict", http.StatusConflict)
	ErrValidation       = NewAPIError(CodeValidation, "Missing or invalid fields", http.StatusBadRequest)
	ErrTransport        = NewAPIError(CodeTransport, "Could not reach the server", http.StatusBadGateway)
	ErrPermissionDenied = NewAPIError(CodePermissionDenied, "Permission denied", http.StatusForbidden)
)

func Wrap(err error, code, message string, status int) *APIError {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	e := NewAPIError(code, message, status, err.Error())
	e.cause = err
	return e
}

// Validation builds a validation error with one message per offending field.
func Validation(fields map[string]string) *APIError {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	e := NewAPIError(CodeValidation, "Missing or invalid fields", http.StatusBadRequest, strings.Join(keys, ", "))
	e.Fields = fields
	return e
}

// Transport wraps a network or backend failure. status is 0 when no response arrived.
func Transport(err error, status int) *APIError {
	e := NewAPIError(CodeTransport, "Could not reach the server", status)
	if status == 0 {
		e.Status = http.StatusBadGateway
	}
	if err != nil {
		e.Details = err.Error()
		e.cause = err
	}
	return e
}

// NotFound reports an operation on an id the server no longer has.
func NotFound(what string) *APIError {
	return NewAPIError(CodeNotFound, "Resource not found", http.StatusNotFound, what)
}

// PermissionDenied reports a refused capability such as location access.
func PermissionDenied(err error) *APIError {
	e := NewAPIError(CodePermissionDenied, "Permission denied", http.StatusForbidden)
	if err != nil {
		e.Details = err.Error()
		e.cause = err
	}
	return e
}

// FieldErrors returns the per-field messages of a validation error, if any.
func FieldErrors(err error) map[string]string {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) && apiErr.Code == CodeValidation {
		return apiErr.Fields
	}
	return nil
}

// Is and As forward to the standard library so callers need a single import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func New(text string) error { return stderrors.New(text) }
