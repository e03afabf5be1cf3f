package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types in the OpenAI error envelope. Everything user-visible
// maps onto one of these; the Code field carries the specific cause.
const (
	ErrTypeInvalidRequest = "invalid_request_error"
	ErrTypeAPI            = "api_error"
	ErrTypeTimeout        = "timeout_error"
)

// Error codes used by the relay.
const (
	ErrCodeModelNotFound      = "model_not_found"
	ErrCodeProviderError      = "provider_error"
	ErrCodeInvalidResponse    = "invalid_response"
	ErrCodeUpstreamTimeout    = "upstream_timeout"
	ErrCodeConnectionFailed   = "connection_failed"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeInternalError      = "internal_error"
)

// APIError is a user-visible error carrying the OpenAI envelope fields
// plus the HTTP status to respond with. Status is not serialized; it
// travels on the response line.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorEnvelope is the wire shape for error responses and mid-stream
// error frames: {"error": {"message", "type", "code"}}.
type ErrorEnvelope struct {
	Error *APIError `json:"error"`
}

// Envelope wraps the error for JSON encoding.
func (e *APIError) Envelope() ErrorEnvelope {
	return ErrorEnvelope{Error: e}
}

// NewInvalidRequestError reports a malformed or unacceptable request.
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Message: message,
		Type:    ErrTypeInvalidRequest,
		Status:  http.StatusBadRequest,
	}
}

// NewModelNotFoundError reports an unresolvable display name.
func NewModelNotFoundError(displayName string) *APIError {
	return &APIError{
		Message: fmt.Sprintf("model %q not found in any configured provider", displayName),
		Type:    ErrTypeInvalidRequest,
		Code:    ErrCodeModelNotFound,
		Status:  http.StatusBadRequest,
	}
}

// NewProviderError reports an upstream HTTP status >= 400. The relay
// mirrors the upstream status to the caller.
func NewProviderError(provider string, status int, detail string) *APIError {
	return &APIError{
		Message: fmt.Sprintf("provider %q returned status %d: %s", provider, status, detail),
		Type:    ErrTypeAPI,
		Code:    ErrCodeProviderError,
		Status:  status,
	}
}

// NewInvalidResponseError reports an upstream body the relay could not
// decode.
func NewInvalidResponseError(provider string, cause error) *APIError {
	return &APIError{
		Message: fmt.Sprintf("provider %q returned an unreadable response: %v", provider, cause),
		Type:    ErrTypeAPI,
		Code:    ErrCodeInvalidResponse,
		Status:  http.StatusBadGateway,
	}
}

// NewUpstreamTimeoutError reports an upstream call that exceeded the
// provider timeout.
func NewUpstreamTimeoutError(provider string) *APIError {
	return &APIError{
		Message: fmt.Sprintf("request to provider %q timed out", provider),
		Type:    ErrTypeTimeout,
		Code:    ErrCodeUpstreamTimeout,
		Status:  http.StatusGatewayTimeout,
	}
}

// NewConnectionError reports a network failure before any upstream
// status was received.
func NewConnectionError(provider string, cause error) *APIError {
	return &APIError{
		Message: fmt.Sprintf("failed to connect to provider %q: %v", provider, cause),
		Type:    ErrTypeTimeout,
		Code:    ErrCodeConnectionFailed,
		Status:  http.StatusBadGateway,
	}
}

// NewStoreUnavailableError reports a session store that could not serve
// a read in time. Callers should advertise Retry-After alongside it.
func NewStoreUnavailableError(cause error) *APIError {
	return &APIError{
		Message: fmt.Sprintf("session storage unavailable: %v", cause),
		Type:    ErrTypeAPI,
		Code:    ErrCodeServiceUnavailable,
		Status:  http.StatusServiceUnavailable,
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(cause error) *APIError {
	return &APIError{
		Message: fmt.Sprintf("internal server error: %v", cause),
		Type:    ErrTypeAPI,
		Code:    ErrCodeInternalError,
		Status:  http.StatusInternalServerError,
	}
}

// AsAPIError normalizes any error into an APIError, wrapping unknown
// errors as internal.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewInternalError(err)
}
