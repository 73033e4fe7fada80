package api

import "fmt"

// ErrorType represents the category of a client error.
type ErrorType string

const (
	// ErrorTypeServerError covers backend 5xx responses and network-level
	// failures (connection reset, DNS, timeout).
	ErrorTypeServerError ErrorType = "server_error"
	// ErrorTypeInvalidRequest covers malformed requests rejected locally
	// or by the backend with 400.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	// ErrorTypeAuthentication covers 401/403 responses for a bad API key.
	ErrorTypeAuthentication ErrorType = "authentication"
	// ErrorTypeNotFound covers 404 responses.
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeTooManyRequests covers 429 responses.
	ErrorTypeTooManyRequests ErrorType = "too_many_requests"
	// ErrorTypeAPI covers envelopes that parsed successfully but carry a
	// non-success status code from the Mavi backend.
	ErrorTypeAPI ErrorType = "api_error"
	// ErrorTypeIncompleteStream covers a streaming chat response that
	// ended while an envelope was still partially buffered.
	ErrorTypeIncompleteStream ErrorType = "incomplete_stream"
)

// APIError represents a structured client error with type, code, param,
// and message. Code carries the Mavi application status code when the
// error originates from a parsed envelope.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewAuthenticationError creates an APIError for a rejected API key.
func NewAuthenticationError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeAuthentication,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewServerError creates an APIError for backend or network failures.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// NewTooManyRequestsError creates an APIError for rate limiting.
func NewTooManyRequestsError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeTooManyRequests,
		Message: message,
	}
}

// NewAPIError creates an APIError for a non-success envelope code
// returned by the Mavi backend.
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeAPI,
		Code:    code,
		Message: message,
	}
}

// NewIncompleteStreamError creates an APIError for a chat stream that
// terminated mid-envelope.
func NewIncompleteStreamError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeIncompleteStream,
		Message: message,
	}
}
