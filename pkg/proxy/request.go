package proxy

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy/types"
)

const (
	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"

	// DefaultMaxBodyBytes applies when no limit is configured.
	DefaultMaxBodyBytes = 1 << 20
)

// ParseCompletionRequest decodes a completion request body. The provider
// and model query parameters fill whatever the body leaves empty, which is
// how bare message arrays name their target.
//
// Bodies over maxBytes fail with 413, malformed JSON with 400. Message
// content is not validated here.
func ParseCompletionRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) (*types.CompletionRequest, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &RequestError{
				StatusCode: http.StatusRequestEntityTooLarge,
				Type:       types.ErrorTypeRequestTooLarge,
				Message:    "request body too large",
				Cause:      err,
			}
		}
		return nil, &RequestError{
			StatusCode: http.StatusBadRequest,
			Type:       providers.KindInvalidRequest,
			Message:    "failed to read request body",
			Cause:      err,
		}
	}

	req, err := DecodeCompletionRequest(body)
	if err != nil {
		return nil, err
	}
	ApplyQuery(req, r)
	return req, nil
}

// DecodeCompletionRequest parses either request shape from raw JSON.
func DecodeCompletionRequest(data []byte) (*types.CompletionRequest, error) {
	var req types.CompletionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &RequestError{
			StatusCode: http.StatusBadRequest,
			Type:       providers.KindInvalidRequest,
			Message:    "invalid JSON in request body",
			Cause:      err,
		}
	}
	return &req, nil
}

// ApplyQuery copies the provider and model query parameters into req where
// the body did not set them.
func ApplyQuery(req *types.CompletionRequest, r *http.Request) {
	q := r.URL.Query()
	if req.Provider == "" {
		req.Provider = q.Get("provider")
	}
	if req.Model == "" {
		req.Model = q.Get("model")
	}
}
