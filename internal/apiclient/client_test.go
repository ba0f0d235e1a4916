package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morahq/mora/internal/apiclient"
	"github.com/morahq/mora/internal/mockapi"
	"github.com/morahq/mora/internal/session"
)

func TestCreateAndGetSession(t *testing.T) {
	srv := httptest.NewServer(mockapi.New(nil).Handler())
	defer srv.Close()

	c := apiclient.New(srv.URL)

	created, err := c.CreateSession(context.Background(), apiclient.CreateSessionRequest{
		VideoURL: "https://example.com/video.mp4",
		Language: "python",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, "https://example.com/video.mp4", created.VideoURL)
	assert.Equal(t, "created", created.Status)

	got, err := c.GetSession(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, got.SessionID)
	assert.Equal(t, "processing", got.Status)
}

func TestGetSessionNotFound(t *testing.T) {
	srv := httptest.NewServer(mockapi.New(nil).Handler())
	defer srv.Close()

	c := apiclient.New(srv.URL)
	_, err := c.GetSession(context.Background(), "no-such-session")

	require.Error(t, err)
	assert.ErrorIs(t, err, apiclient.ErrSessionNotFound)

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestCreateSessionRejectedWithServerMessage(t *testing.T) {
	srv := httptest.NewServer(mockapi.New(nil).Handler())
	defer srv.Close()

	c := apiclient.New(srv.URL)
	_, err := c.CreateSession(context.Background(), apiclient.CreateSessionRequest{})

	require.Error(t, err)
	assert.ErrorIs(t, err, apiclient.ErrBadRequest)
	assert.Contains(t, err.Error(), "videoUrl is required")
}

func TestServerErrorClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := apiclient.New(srv.URL)
	_, err := c.GetSession(context.Background(), "s-1")

	assert.ErrorIs(t, err, apiclient.ErrServerError)
}

func TestUnreachableHost(t *testing.T) {
	c := apiclient.New("http://127.0.0.1:1")
	_, err := c.GetSession(context.Background(), "s-1")
	assert.ErrorIs(t, err, apiclient.ErrUnavailable)
}

func TestMalformedResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := apiclient.New(srv.URL)
	_, err := c.GetSession(context.Background(), "s-1")
	assert.ErrorIs(t, err, apiclient.ErrBadResponse)
}

func TestSessionResponseSnapshot(t *testing.T) {
	raw := `{
		"sessionId": "s-7",
		"videoUrl": "https://example.com/v.mp4",
		"status": "completed",
		"generatedCode": "print(1)",
		"error": ""
	}`
	var res apiclient.SessionResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &res))

	snap := res.Snapshot()
	assert.Equal(t, "s-7", snap.ID)
	assert.Equal(t, session.StatusCompleted, snap.Status)
	assert.Equal(t, "print(1)", snap.Code)
	assert.True(t, snap.Terminal())
}

func TestStreamURL(t *testing.T) {
	c := apiclient.New("http://backend:8000/")
	assert.Equal(t, "http://backend:8000/api/session/s%2F1/stream", c.StreamURL("s/1"))
	assert.Equal(t, "http://backend:8000", c.Base())
}
