// errors.go - Structured error handling for API responses
package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pwin-ai/pdf-analyzer/internal/backend"
)

// APIError represents a structured API error response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error.
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field.
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewUploadRejectedError creates a 400 error for a rejected file.
func NewUploadRejectedError(cause error) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "UPLOAD_REJECTED",
		Message: cause.Error(),
	}
}

// NewNotFoundError creates a 404 Not Found error.
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error.
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewInternalError creates a 500 Internal Server Error.
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewBackendError translates a backend client failure into its
// user-facing shape. Each failure class keeps a distinct code so the UI
// can phrase the message accordingly; none of them expose a stack trace.
func NewBackendError(err error) *APIError {
	if se, ok := backend.AsStatusError(err); ok {
		apiErr := &APIError{
			Status:  http.StatusBadGateway,
			Code:    "BACKEND_ERROR",
			Message: fmt.Sprintf("analysis service returned status %d", se.Status),
		}
		if se.Body != "" {
			apiErr.Details = se.Body
		}
		return apiErr
	}
	if _, ok := backend.AsDecodeError(err); ok {
		return &APIError{
			Status:  http.StatusBadGateway,
			Code:    "BACKEND_BAD_RESPONSE",
			Message: "unexpected response from server",
		}
	}
	if _, ok := backend.AsTransportError(err); ok {
		return &APIError{
			Status:  http.StatusBadGateway,
			Code:    "BACKEND_UNREACHABLE",
			Message: "could not reach the analysis service",
		}
	}
	return NewInternalError("analysis failed", err)
}

// ErrorHandler is the echo HTTPErrorHandler for this API.
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError

	switch e := err.(type) {
	case *APIError:
		apiErr = e
	case *echo.HTTPError:
		apiErr = &APIError{
			Status:  e.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", e.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
	}

	c.JSON(apiErr.Status, apiErr)
}
