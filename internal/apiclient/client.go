// Package apiclient is the thin REST client for the video-to-code backend:
// session creation and session fetch. The event stream itself lives in the
// stream package.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/morahq/mora/internal/metrics"
	"github.com/morahq/mora/internal/session"
	"github.com/morahq/mora/internal/timeline"
)

// CreateSessionRequest is the body of POST /api/session.
type CreateSessionRequest struct {
	VideoURL string `json:"videoUrl"`
	Language string `json:"language,omitempty"`
}

// SessionResponse is the backend's session snapshot representation.
type SessionResponse struct {
	SessionID     string             `json:"sessionId"`
	VideoURL      string             `json:"videoUrl"`
	Status        string             `json:"status"`
	GeneratedCode string             `json:"generatedCode,omitempty"`
	Timeline      *timeline.Timeline `json:"timeline,omitempty"`
	Error         string             `json:"error,omitempty"`
	CreatedAt     string             `json:"createdAt,omitempty"`
	UpdatedAt     string             `json:"updatedAt,omitempty"`
}

// Snapshot converts the REST representation into a reducer snapshot, so an
// initial fetch and a folded stream produce the same state shape.
func (r SessionResponse) Snapshot() session.Snapshot {
	s := session.New(r.SessionID, r.VideoURL)
	s.Status = session.Status(r.Status)
	s.Code = r.GeneratedCode
	s.Timeline = r.Timeline
	s.Err = r.Error
	return s
}

// Client talks to the backend REST API.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the backend at base. Requests are traced via the
// otelhttp transport.
func New(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// CreateSession registers a new conversion session for the video URL.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (SessionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("apiclient: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/session", bytes.NewReader(body))
	if err != nil {
		return SessionResponse{}, fmt.Errorf("apiclient: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(httpReq)
	if err != nil {
		metrics.IncAPIRequest("create_session", "failure")
		return SessionResponse{}, &APIError{Sentinel: ErrUnavailable, Operation: "create session", Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		metrics.IncAPIRequest("create_session", "failure")
		return SessionResponse{}, statusError("create session", res)
	}

	var out SessionResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		metrics.IncAPIRequest("create_session", "failure")
		return SessionResponse{}, &APIError{Sentinel: ErrBadResponse, Operation: "create session", Err: err}
	}
	metrics.IncAPIRequest("create_session", "success")
	return out, nil
}

// GetSession fetches the current session snapshot.
func (c *Client) GetSession(ctx context.Context, sessionID string) (SessionResponse, error) {
	u := c.base + "/api/session/" + url.PathEscape(sessionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("apiclient: build request: %w", err)
	}

	res, err := c.http.Do(httpReq)
	if err != nil {
		metrics.IncAPIRequest("get_session", "failure")
		return SessionResponse{}, &APIError{Sentinel: ErrUnavailable, Operation: "get session", Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		metrics.IncAPIRequest("get_session", "failure")
		return SessionResponse{}, &APIError{Sentinel: ErrSessionNotFound, Operation: "get session", Status: res.StatusCode}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		metrics.IncAPIRequest("get_session", "failure")
		return SessionResponse{}, statusError("get session", res)
	}

	var out SessionResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		metrics.IncAPIRequest("get_session", "failure")
		return SessionResponse{}, &APIError{Sentinel: ErrBadResponse, Operation: "get session", Err: err}
	}
	metrics.IncAPIRequest("get_session", "success")
	return out, nil
}

// StreamURL returns the SSE endpoint for a session, for handing to the
// stream client.
func (c *Client) StreamURL(sessionID string) string {
	return fmt.Sprintf("%s/api/session/%s/stream", c.base, url.PathEscape(sessionID))
}

// Base returns the configured API base URL.
func (c *Client) Base() string {
	return c.base
}
