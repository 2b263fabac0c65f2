package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error classes. Typed errors below match exactly one of these via errors.Is.
var (
	// ErrInvalidRequest marks malformed or empty message sequences.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnknownProvider marks a provider name missing from the registry.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUpstreamUnavailable marks a failure to establish the upstream stream.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamStream marks an I/O or parse failure after the stream opened.
	ErrUpstreamStream = errors.New("upstream stream error")

	// ErrTimeout marks an expired open or idle deadline.
	ErrTimeout = errors.New("timeout")
)

// ValidationError represents a request validation failure.
// This occurs when the request has invalid fields before sending to the provider.
type ValidationError struct {
	// Field is the name of the invalid field
	Field string

	// Message describes what is invalid about the field
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}

// Is reports whether target is ErrInvalidRequest.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// UnknownProviderError is returned when a provider name is not registered.
type UnknownProviderError struct {
	// Name is the requested provider name
	Name string
}

// Error implements the error interface.
func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("provider %q is not registered", e.Name)
}

// Is reports whether target is ErrUnknownProvider.
func (e *UnknownProviderError) Is(target error) bool {
	return target == ErrUnknownProvider
}

// UnavailableError represents a failure to open the upstream stream.
// It includes the provider name, HTTP status code, and underlying error.
type UnavailableError struct {
	// Provider is the name of the provider that could not be reached
	Provider string

	// StatusCode is the HTTP status code (0 if the connection failed)
	StatusCode int

	// Message is the error message
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q unavailable (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("provider %q unavailable: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %q unavailable: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrUpstreamUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// StreamError represents an error that occurred during streaming.
type StreamError struct {
	// Provider is the name of the provider where the error occurred
	Provider string

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %q stream error: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %q stream error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *StreamError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrUpstreamStream.
func (e *StreamError) Is(target error) bool {
	return target == ErrUpstreamStream
}

// ParseError represents a malformed event in the upstream stream.
type ParseError struct {
	// Provider is the name of the provider that returned the malformed event
	Provider string

	// RawResponse is the raw payload that failed to parse
	RawResponse string

	// Cause is the underlying parse error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q response parse error: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrUpstreamStream.
func (e *ParseError) Is(target error) bool {
	return target == ErrUpstreamStream
}

// TimeoutError represents an expired session deadline.
type TimeoutError struct {
	// Provider is the name of the provider being waited on
	Provider string

	// Phase is "open" for the first-chunk deadline or "idle" between chunks
	Phase string

	// Timeout is the configured timeout duration
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q %s timeout after %s", e.Provider, e.Phase, e.Timeout)
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ConfigError represents a provider configuration error.
// This occurs when the provider configuration is invalid.
type ConfigError struct {
	// Provider is the name of the provider with invalid configuration
	Provider string

	// Field is the configuration field that is invalid
	Field string

	// Message describes the configuration error
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s",
		e.Provider, e.Field, e.Message)
}

// Error kinds reported to clients, logs and metrics.
const (
	KindInvalidRequest      = "invalid_request"
	KindUnknownProvider     = "unknown_provider"
	KindUpstreamUnavailable = "upstream_unavailable"
	KindUpstreamStream      = "upstream_stream_error"
	KindTimeout             = "timeout"
	KindCancelled           = "cancelled"
	KindInternal            = "internal_error"
)

// Kind returns the error class of err as a stable string. A nil error has
// no kind.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrUnknownProvider):
		return KindUnknownProvider
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrUpstreamUnavailable):
		return KindUpstreamUnavailable
	case errors.Is(err, ErrUpstreamStream):
		return KindUpstreamStream
	case errors.Is(err, context.Canceled):
		return KindCancelled
	default:
		return KindInternal
	}
}
