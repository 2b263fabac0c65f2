package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/session"
)

// StatusClientClosedRequest is logged and counted when the client left
// before a response was produced. It is never written to a live client.
const StatusClientClosedRequest = 499

// RequestError is a malformed inbound request, detected before any provider
// is involved.
type RequestError struct {
	StatusCode int
	Type       string
	Message    string
	Cause      error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

// StatusFor maps an error to the HTTP status reported before the first
// chunk.
//
//	invalid request, unknown provider  400
//	body too large                     413
//	upstream unavailable, stream error 502
//	shutdown                           503
//	open deadline                      504
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}

	switch {
	case errors.Is(err, providers.ErrInvalidRequest), errors.Is(err, providers.ErrUnknownProvider):
		return http.StatusBadRequest
	case errors.Is(err, providers.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, providers.ErrUpstreamUnavailable), errors.Is(err, providers.ErrUpstreamStream):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrShutdown):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrClientGone), errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorType returns the "type" field reported for err.
func ErrorType(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Type
	}
	if errors.Is(err, session.ErrShutdown) {
		return types.ErrorTypeShuttingDown
	}
	return providers.Kind(err)
}

// HandleError converts err into the JSON error body. Internal errors are
// reported without detail.
func HandleError(err error, requestID string) *types.ErrorResponse {
	errorType := ErrorType(err)

	message := "an internal error occurred"
	if errorType != providers.KindInternal {
		message = err.Error()
	}

	return types.NewErrorResponse(errorType, message, requestID)
}

// WriteError writes err as a JSON error response with the status from
// StatusFor.
func WriteError(w http.ResponseWriter, err error, requestID string) error {
	return WriteJSONResponse(w, StatusFor(err), HandleError(err, requestID))
}
