package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrSessionNotFound = errors.New("backend: session not found")
	ErrUnavailable     = errors.New("backend: host unreachable or transport failure")
	ErrServerError     = errors.New("backend: internal error (5xx)")
	ErrBadRequest      = errors.New("backend: request rejected (4xx)")
	ErrBadResponse     = errors.New("backend: invalid response format")
)

// APIError wraps the sentinel errors with request context.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	Message   string // server-provided message, when present
	Err       error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("apiclient: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}

// statusError builds an APIError from a non-2xx response, pulling the
// server's message field out of the body when it has one.
func statusError(operation string, res *http.Response) *APIError {
	sentinel := ErrBadRequest
	if res.StatusCode >= 500 {
		sentinel = ErrServerError
	}

	apiErr := &APIError{Sentinel: sentinel, Operation: operation, Status: res.StatusCode}

	body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	}
	return apiErr
}
