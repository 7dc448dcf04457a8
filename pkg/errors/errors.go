package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code, so clones and wrapped instances compare equal
// to their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Request workflow errors.
var (
	ErrInvalidTransition   = New("INVALID_TRANSITION", http.StatusConflict, "transition not allowed from current status")
	ErrInvalidOperation    = New("INVALID_OPERATION", http.StatusConflict, "operation not allowed in current status")
	ErrConcurrencyConflict = New("CONCURRENCY_CONFLICT", http.StatusConflict, "entity was modified concurrently, retry the operation")
)

// Warehouse access-control errors.
var (
	ErrAccessDenied        = New("ACCESS_DENIED", http.StatusForbidden, "no access to the requested warehouse")
	ErrDuplicateAssignment = New("DUPLICATE_ASSIGNMENT", http.StatusConflict, "user is already assigned to this warehouse")
	ErrLastAssignment      = New("LAST_ASSIGNMENT", http.StatusConflict, "cannot remove the user's only warehouse assignment")
	ErrInvalidWarehouse    = New("INVALID_WAREHOUSE", http.StatusUnprocessableEntity, "warehouse does not exist or is inactive")
)

// ErrDependencyFailure signals an unavailable downstream collaborator.
var ErrDependencyFailure = New("DEPENDENCY_FAILURE", http.StatusBadGateway, "a downstream dependency is unavailable")

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
