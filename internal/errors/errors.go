// Package errors provides custom error types for the grantchat client.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrTransport matches every failure to complete an exchange with the backend:
	// network faults, non-success HTTP statuses and undecodable bodies.
	ErrTransport = errors.New("transport failure")

	// ErrMarkup matches markup that had to be degraded while parsing or rendering.
	ErrMarkup = errors.New("markup failure")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotAuthenticated   = errors.New("not logged in")
	ErrEmptyResponse      = errors.New("empty response body")
)

// NetworkError represents a request that never produced an HTTP response
type NetworkError struct {
	Operation string
	Endpoint  string
	Cause     error
}

func (e *NetworkError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("network error during %s at %s: %v", e.Operation, e.Endpoint, e.Cause)
	}
	return fmt.Sprintf("network error during %s: %v", e.Operation, e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// Is allows comparison with sentinel errors
func (e *NetworkError) Is(target error) bool {
	if target == ErrTransport {
		return true
	}
	_, ok := target.(*NetworkError)
	return ok
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(operation, endpoint string, cause error) *NetworkError {
	return &NetworkError{Operation: operation, Endpoint: endpoint, Cause: cause}
}

// APIError represents a non-success HTTP response
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("API error at %s: %s", e.Endpoint, e.Message)
}

// Is allows comparison with sentinel errors
func (e *APIError) Is(target error) bool {
	if target == ErrTransport {
		return true
	}
	_, ok := target.(*APIError)
	return ok
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, endpoint, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// WithBody attaches a (truncated) response body for diagnostics
func (e *APIError) WithBody(body string) *APIError {
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	e.Body = body
	return e
}

// DecodeError represents a response body that could not be interpreted
type DecodeError struct {
	Message  string
	Endpoint string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error at %s: %s", e.Endpoint, e.Message)
}

// Is allows comparison with sentinel errors
func (e *DecodeError) Is(target error) bool {
	if target == ErrTransport {
		return true
	}
	_, ok := target.(*DecodeError)
	return ok
}

// NewDecodeError creates a new DecodeError
func NewDecodeError(endpoint, message string) *DecodeError {
	return &DecodeError{Endpoint: endpoint, Message: message}
}

// MarkupError describes a piece of markup that was degraded instead of rendered
type MarkupError struct {
	Tag     string
	Offset  int
	Message string
}

func (e *MarkupError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("markup error at offset %d ({%% %s %%}): %s", e.Offset, e.Tag, e.Message)
	}
	return fmt.Sprintf("markup error at offset %d: %s", e.Offset, e.Message)
}

// Is allows comparison with sentinel errors
func (e *MarkupError) Is(target error) bool {
	if target == ErrMarkup {
		return true
	}
	_, ok := target.(*MarkupError)
	return ok
}

// NewMarkupError creates a new MarkupError
func NewMarkupError(tag string, offset int, message string) *MarkupError {
	return &MarkupError{Tag: tag, Offset: offset, Message: message}
}

// IsTransportError reports whether err is any kind of transport failure
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsNetworkError reports whether err (or anything it wraps) is a NetworkError
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsMarkupError reports whether err is a markup degradation
func IsMarkupError(err error) bool {
	return errors.Is(err, ErrMarkup)
}

// GetHTTPStatus returns the HTTP status carried by err, or 0
func GetHTTPStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// GetEndpoint returns the endpoint carried by err, or ""
func GetEndpoint(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Endpoint
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Endpoint
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return decErr.Endpoint
	}
	return ""
}

// IsAuthError reports whether err is a failed or missing login
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrNotAuthenticated)
}
