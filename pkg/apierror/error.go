package apierror

import (
	"encoding/json"
	"net/http"
)

// Error represents a structured API error response.
type Error struct {
	StatusCode int          `json:"-"`
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Details    []FieldError `json:"details,omitempty"`
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// WithDetails adds field-level error details.
func (e *Error) WithDetails(details ...FieldError) *Error {
	e.Details = details
	return e
}

// ToJSON converts the error to JSON bytes.
func (e *Error) ToJSON() []byte {
	body := map[string]interface{}{
		"code":    e.Code,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}

	data, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"error":   body,
	})
	return data
}

func newError(status int, code, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{
		StatusCode: status,
		Code:       code,
		Message:    message,
	}
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return newError(http.StatusBadRequest, "BAD_REQUEST", message, "Bad request")
}

// ValidationError creates a 400 error with validation details.
func ValidationError(message string, details ...FieldError) *Error {
	return newError(http.StatusBadRequest, "VALIDATION_ERROR", message, "Validation failed").WithDetails(details...)
}

// InvalidAmount creates a 400 error for non-positive or malformed amounts.
func InvalidAmount(message string) *Error {
	return newError(http.StatusBadRequest, "INVALID_AMOUNT", message, "Invalid amount")
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message string) *Error {
	return newError(http.StatusUnauthorized, "UNAUTHORIZED", message, "Authentication required")
}

// Forbidden creates a 403 Forbidden error.
func Forbidden(message string) *Error {
	return newError(http.StatusForbidden, "FORBIDDEN", message, "Access denied")
}

// NotFound creates a 404 Not Found error.
func NotFound(message string) *Error {
	return newError(http.StatusNotFound, "NOT_FOUND", message, "Resource not found")
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *Error {
	return newError(http.StatusConflict, "CONFLICT", message, "Resource already exists")
}

// InsufficientFunds creates a 422 error for withdrawals larger than the available balance.
func InsufficientFunds(message string) *Error {
	return newError(http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", message, "Insufficient funds")
}

// TooManyRequests creates a 429 error.
func TooManyRequests(message string) *Error {
	return newError(http.StatusTooManyRequests, "RATE_LIMITED", message, "Too many requests")
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	return newError(http.StatusInternalServerError, "INTERNAL_ERROR", message, "An unexpected error occurred")
}

// ServiceUnavailable creates a 503 Service Unavailable error.
func ServiceUnavailable(message string) *Error {
	return newError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message, "Service temporarily unavailable")
}
