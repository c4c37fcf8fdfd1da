package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures across the harvest-and-archive pipeline
type ErrorType string

const (
	// ErrorTypeAuth marks an expired or rejected credential. Fatal for the
	// affected user's run, never retried.
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeSuspended marks a harvest target that no longer exists.
	ErrorTypeSuspended ErrorType = "suspended"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeNetwork   ErrorType = "network"
	ErrorTypeParsing   ErrorType = "parsing"
	ErrorTypeNotFound  ErrorType = "not_found"
	ErrorTypeServer    ErrorType = "server_error"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error represents a pipeline error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates a typed error
func New(t ErrorType, message string, code int) *Error {
	return &Error{Type: t, Message: message, Code: code}
}

// TypeOf returns the classified type of err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsAuth reports whether err is a credential-expiry error
func IsAuth(err error) bool {
	return TypeOf(err) == ErrorTypeAuth
}

// IsSuspended reports whether err marks a suspended harvest target
func IsSuspended(err error) bool {
	return TypeOf(err) == ErrorTypeSuspended
}

// IsRateLimit reports whether err is a backend-throttling error
func IsRateLimit(err error) bool {
	return TypeOf(err) == ErrorTypeRateLimit
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServer:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
