package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	// ErrMutationDisabled is returned by create/update while the registry runs read-only.
	ErrMutationDisabled = &AppError{
		Code:       "CONNECTION_MUTATION_DISABLED",
		Message:    "Connection update is disabled. Use Vault-based configuration.",
		StatusCode: http.StatusMethodNotAllowed,
	}

	// ErrConnectionConflict reports a create that reuses an existing connection id.
	ErrConnectionConflict = &AppError{
		Code:       "CONNECTION_CONFLICT",
		Message:    "A connection with this id already exists",
		StatusCode: http.StatusConflict,
	}

	// ErrConnectionNotDeletable signals a delete aimed at a statically configured connection.
	ErrConnectionNotDeletable = &AppError{
		Code:       "CONNECTION_NOT_DELETABLE",
		Message:    "Connection is managed by static configuration and cannot be deleted",
		StatusCode: http.StatusForbidden,
	}

	// ErrConnectionImmutable signals an update aimed at a statically configured connection.
	ErrConnectionImmutable = &AppError{
		Code:       "CONNECTION_IMMUTABLE",
		Message:    "Connection is managed by static configuration and cannot be modified",
		StatusCode: http.StatusForbidden,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}
