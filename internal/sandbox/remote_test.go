package sandbox_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morahq/mora/internal/sandbox"
)

// fakeSandboxService mimics the remote interpreter's sandbox lifecycle.
type fakeSandboxService struct {
	created   atomic.Int32
	killed    atomic.Int32
	execCode  int
	execution sandbox.Execution
}

func (f *fakeSandboxService) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sandboxes", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		f.created.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"sandboxId": fmt.Sprintf("sbx-%d", f.created.Load())})
	})
	mux.HandleFunc("POST /sandboxes/{id}/code", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotEmpty(t, body["code"])
		if f.execCode != 0 {
			w.WriteHeader(f.execCode)
			return
		}
		_ = json.NewEncoder(w).Encode(f.execution)
	})
	mux.HandleFunc("DELETE /sandboxes/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.killed.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func TestRemoteRunnerLifecycle(t *testing.T) {
	svc := &fakeSandboxService{}
	svc.execution.Logs.Stdout = []string{"42"}
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	r := sandbox.NewRemoteRunner(srv.URL, "test-key")
	exec, err := r.Run(context.Background(), "print(42)")
	require.NoError(t, err)

	assert.Equal(t, []string{"42"}, exec.Logs.Stdout)
	assert.Equal(t, int32(1), svc.created.Load())
	assert.Equal(t, int32(1), svc.killed.Load(), "sandbox must be released after the run")
}

func TestRemoteRunnerReleasesSandboxOnExecuteFailure(t *testing.T) {
	svc := &fakeSandboxService{execCode: http.StatusInternalServerError}
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	r := sandbox.NewRemoteRunner(srv.URL, "test-key")
	_, err := r.Run(context.Background(), "print(42)")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
	assert.Equal(t, int32(1), svc.killed.Load(), "sandbox must be released even when execution fails")
}

func TestRemoteRunnerMissingCredential(t *testing.T) {
	r := sandbox.NewRemoteRunner("http://localhost:0", "")
	_, err := r.Run(context.Background(), "print(42)")
	assert.ErrorIs(t, err, sandbox.ErrNoAPIKey)
}

func TestRemoteRunnerRichResultRoundtrip(t *testing.T) {
	svc := &fakeSandboxService{
		execution: sandbox.Execution{
			Results: []sandbox.RichResult{{Text: "df.head()"}, {PNG: "base64data"}},
			Error:   &sandbox.ExecError{Name: "ValueError", Value: "bad column"},
		},
	}
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	r := sandbox.NewRemoteRunner(srv.URL, "test-key")
	exec, err := r.Run(context.Background(), "df.head()")
	require.NoError(t, err)

	got := sandbox.Normalize(exec)
	assert.False(t, got.Success)
	assert.Equal(t, "bad column", got.Error)
	assert.Equal(t, "df.head()\n[Image output]", got.Output)
}
