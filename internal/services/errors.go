package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/ticketscope/internal/shared"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s returned %d", shared.ErrAPIRequest, e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s returned %d: %s", shared.ErrAPIRequest, e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap lets callers match [shared.ErrAPIRequest], plus [shared.ErrNotFound] for 404s.
func (e *APIError) Unwrap() []error {
	if e.StatusCode == http.StatusNotFound {
		return []error{shared.ErrAPIRequest, shared.ErrNotFound}
	}
	return []error{shared.ErrAPIRequest}
}

// Temporary reports whether retrying may succeed: server errors and rate limiting.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout
}

// ClientError reports a 4xx response.
func (e *APIError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// newAPIError builds an [APIError], pulling a message out of the common JSON error shapes.
func newAPIError(endpoint string, status int, body []byte) *APIError {
	return &APIError{StatusCode: status, Endpoint: endpoint, Message: errorMessage(body)}
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Msg     string `json:"msg"`
		Hint    string `json:"hint"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, m := range []string{payload.Message, payload.Error, payload.Msg} {
			if m != "" {
				if payload.Hint != "" {
					return m + " (" + payload.Hint + ")"
				}
				return m
			}
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}

// AsAPIError extracts an [APIError] from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsClientError reports whether err carries a 4xx response.
func IsClientError(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.ClientError()
}
