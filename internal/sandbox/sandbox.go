// Package sandbox submits the generated code buffer to an execution
// collaborator and normalizes its heterogeneous result shapes into one
// ExecutionResult value. Two collaborator shapes are supported: a remote
// sandboxed interpreter returning rich multi-part results, and a local
// interpreter subprocess returning plain captured streams. Callers never
// need to know which is in use.
package sandbox

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/morahq/mora/internal/log"
	"github.com/morahq/mora/internal/metrics"
)

// ExecutionResult is the normalized outcome of running the code buffer.
type ExecutionResult struct {
	Success bool     `json:"success"`
	Output  string   `json:"output,omitempty"`
	Error   string   `json:"error,omitempty"`
	Logs    []string `json:"logs,omitempty"`
}

// RichResult is one structured output value from a rich-result collaborator.
// Non-text payloads (images) are represented by placeholders in the
// normalized output.
type RichResult struct {
	Text string `json:"text,omitempty"`
	PNG  string `json:"png,omitempty"`
	JPEG string `json:"jpeg,omitempty"`
}

// ExecError is the collaborator's execution-level error value.
type ExecError struct {
	Name      string `json:"name,omitempty"`
	Value     string `json:"value,omitempty"`
	Traceback string `json:"traceback,omitempty"`
}

// Execution is the raw collaborator response before normalization.
type Execution struct {
	Results []RichResult `json:"results,omitempty"`
	Logs    struct {
		Stdout []string `json:"stdout,omitempty"`
		Stderr []string `json:"stderr,omitempty"`
	} `json:"logs"`
	Error *ExecError `json:"error,omitempty"`
}

// Runner is one execution collaborator. Run must release any acquired
// sandbox or interpreter resources on every exit path; a release failure
// must not mask the execution error.
type Runner interface {
	Name() string
	Run(ctx context.Context, code string) (Execution, error)
}

// Bridge drives one Runner and produces normalized results. It performs no
// mutual exclusion: the caller serializes Run requests per session.
type Bridge struct {
	runner Runner
	logger zerolog.Logger
}

// NewBridge wires a bridge to the given collaborator.
func NewBridge(runner Runner) *Bridge {
	return &Bridge{
		runner: runner,
		logger: log.WithComponent("sandbox"),
	}
}

// Execute runs the code buffer and normalizes the outcome. An empty or
// whitespace-only buffer short-circuits locally without touching the
// collaborator. Collaborator failures come back as failed results, never as
// panics or unobserved errors.
func (b *Bridge) Execute(ctx context.Context, code string) ExecutionResult {
	if strings.TrimSpace(code) == "" {
		return ExecutionResult{Success: false, Error: "no code to execute"}
	}

	start := time.Now()
	exec, err := b.runner.Run(ctx, code)
	elapsed := time.Since(start)
	metrics.ObserveExecutionDuration(elapsed)

	if err != nil {
		metrics.IncExecution(b.runner.Name(), "failure")
		b.logger.Warn().
			Err(err).
			Str("event", "sandbox.run_failed").
			Str(log.FieldRunner, b.runner.Name()).
			Dur("duration", elapsed).
			Msg("execution collaborator failed")
		return ExecutionResult{Success: false, Error: err.Error()}
	}

	result := Normalize(exec)
	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	metrics.IncExecution(b.runner.Name(), outcome)
	b.logger.Info().
		Str("event", "sandbox.run").
		Str(log.FieldRunner, b.runner.Name()).
		Str(log.FieldOutcome, outcome).
		Dur("duration", elapsed).
		Msg("code executed")
	return result
}

// Normalize folds a raw collaborator response into an ExecutionResult.
// Failure dominates: any execution-level error makes Success false even when
// partial output exists. Output prefers rich results and falls back to the
// joined logs.
func Normalize(exec Execution) ExecutionResult {
	logs := make([]string, 0, len(exec.Logs.Stdout)+len(exec.Logs.Stderr))
	logs = append(logs, exec.Logs.Stdout...)
	logs = append(logs, exec.Logs.Stderr...)

	parts := make([]string, 0, len(exec.Results))
	for _, r := range exec.Results {
		switch {
		case r.Text != "":
			parts = append(parts, r.Text)
		case r.PNG != "" || r.JPEG != "":
			parts = append(parts, "[Image output]")
		default:
			raw, err := json.Marshal(r)
			if err == nil {
				parts = append(parts, string(raw))
			}
		}
	}

	output := strings.Join(parts, "\n")
	if output == "" {
		output = strings.Join(logs, "\n")
	}

	result := ExecutionResult{
		Success: exec.Error == nil,
		Output:  output,
		Logs:    logs,
	}
	if exec.Error != nil {
		result.Error = exec.Error.Value
		if result.Error == "" {
			result.Error = exec.Error.Name
		}
	}
	return result
}
