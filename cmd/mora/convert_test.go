// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morahq/mora/internal/apiclient"
	"github.com/morahq/mora/internal/config"
	"github.com/morahq/mora/internal/mockapi"
	"github.com/morahq/mora/internal/session"
)

// End-to-end: create a session against the mock backend and follow its
// stream to completion.
func TestFollowStreamAgainstMockBackend(t *testing.T) {
	srv := httptest.NewServer(mockapi.New(nil).Handler())
	defer srv.Close()

	cfg := config.Default()
	cfg.APIURL = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	api := apiclient.New(cfg.APIURL)
	created, err := api.CreateSession(ctx, apiclient.CreateSessionRequest{
		VideoURL: "https://example.com/video.mp4",
	})
	require.NoError(t, err)

	snap := session.New(created.SessionID, "https://example.com/video.mp4")
	snap.Status = session.StatusProcessing

	snap, err = followStream(ctx, cfg, snap)
	require.NoError(t, err)

	assert.Equal(t, session.StatusCompleted, snap.Status)
	assert.Len(t, snap.Segments, 3, "segments_complete batch is authoritative")
	assert.Equal(t, 0, snap.ActiveSeg)
	assert.Contains(t, snap.Code, "pd.read_csv")
	require.NotEmpty(t, snap.Thoughts)
	for _, step := range snap.Thoughts {
		assert.Equal(t, session.StepComplete, step.Status, "done must complete step %q", step.Text)
	}
}

func TestFollowStreamUnknownSession(t *testing.T) {
	srv := httptest.NewServer(mockapi.New(nil).Handler())
	defer srv.Close()

	cfg := config.Default()
	cfg.APIURL = srv.URL

	snap := session.New("missing", "u")
	_, err := followStream(context.Background(), cfg, snap)
	assert.Error(t, err)
}

func TestBuildRunner(t *testing.T) {
	cfg := config.Default()

	r, err := buildRunner(cfg, config.RunnerLocal)
	require.NoError(t, err)
	assert.Equal(t, "local", r.Name())

	r, err = buildRunner(cfg, config.RunnerE2B)
	require.NoError(t, err)
	assert.Equal(t, "remote", r.Name())

	_, err = buildRunner(cfg, "docker")
	assert.Error(t, err)
}
