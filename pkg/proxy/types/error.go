package types

// ErrorResponse is the JSON body of every error the gateway reports before
// a stream has started.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Type is a stable machine-readable class, e.g. "invalid_request",
	// "unknown_provider", "upstream_unavailable", "timeout".
	Type string `json:"type"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// RequestID correlates the error with gateway logs.
	RequestID string `json:"request_id,omitempty"`
}

// Error types that do not come from the provider layer.
const (
	// ErrorTypeRequestTooLarge is reported with 413.
	ErrorTypeRequestTooLarge = "request_too_large"

	// ErrorTypeMethodNotAllowed is reported with 405.
	ErrorTypeMethodNotAllowed = "method_not_allowed"

	// ErrorTypeShuttingDown is reported with 503 while the server drains.
	ErrorTypeShuttingDown = "shutting_down"
)

// NewErrorResponse creates an error body.
func NewErrorResponse(errorType, message, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Type:      errorType,
			Message:   message,
			RequestID: requestID,
		},
	}
}
