package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/morahq/mora/internal/log"
)

// ErrNoAPIKey is returned when the remote collaborator is selected but no
// credential is configured. Surfaced at call time, not at startup.
var ErrNoAPIKey = errors.New("sandbox: remote API key not configured")

// RemoteRunner executes code in a remote sandboxed interpreter. Every call
// acquires a fresh sandbox and kills it on all exit paths.
type RemoteRunner struct {
	base   string
	apiKey string
	http   *http.Client
}

// NewRemoteRunner creates a runner against the sandbox service at base.
func NewRemoteRunner(base, apiKey string) *RemoteRunner {
	return &RemoteRunner{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (r *RemoteRunner) Name() string { return "remote" }

// Run acquires a sandbox, executes the code in it and releases it. The
// release runs even when execution or decoding fails, and a release failure
// never masks the primary error.
func (r *RemoteRunner) Run(ctx context.Context, code string) (Execution, error) {
	if r.apiKey == "" {
		return Execution{}, ErrNoAPIKey
	}

	sandboxID, err := r.create(ctx)
	if err != nil {
		return Execution{}, fmt.Errorf("sandbox: create: %w", err)
	}
	defer func() {
		if killErr := r.kill(context.WithoutCancel(ctx), sandboxID); killErr != nil {
			logger := log.WithComponent("sandbox")
			logger.Warn().
				Err(killErr).
				Str("event", "sandbox.kill_failed").
				Str("sandbox_id", sandboxID).
				Msg("failed to release sandbox")
		}
	}()

	var exec Execution
	body, err := json.Marshal(map[string]string{"code": code, "language": "python"})
	if err != nil {
		return Execution{}, fmt.Errorf("sandbox: encode request: %w", err)
	}

	res, err := r.do(ctx, http.MethodPost, "/sandboxes/"+sandboxID+"/code", bytes.NewReader(body))
	if err != nil {
		return Execution{}, fmt.Errorf("sandbox: execute: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return Execution{}, fmt.Errorf("sandbox: execute: unexpected status %d", res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(&exec); err != nil {
		return Execution{}, fmt.Errorf("sandbox: decode response: %w", err)
	}
	return exec, nil
}

func (r *RemoteRunner) create(ctx context.Context) (string, error) {
	res, err := r.do(ctx, http.MethodPost, "/sandboxes", nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	var p struct {
		SandboxID string `json:"sandboxId"`
	}
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return "", err
	}
	if p.SandboxID == "" {
		return "", errors.New("empty sandbox id")
	}
	return p.SandboxID, nil
}

func (r *RemoteRunner) kill(ctx context.Context, sandboxID string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := r.do(ctx, http.MethodDelete, "/sandboxes/"+sandboxID, nil)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	return nil
}

func (r *RemoteRunner) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return r.http.Do(req)
}
