package sandbox

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// LocalRunner executes code with a local interpreter subprocess, capturing
// its standard streams. It is the offline fallback for the remote sandbox
// and returns plain captured-stream results without rich values.
type LocalRunner struct {
	bin string
}

// NewLocalRunner creates a runner invoking the given interpreter binary
// (for example "python3"). The binary is handed the code via -c.
func NewLocalRunner(bin string) *LocalRunner {
	if bin == "" {
		bin = "python3"
	}
	return &LocalRunner{bin: bin}
}

func (r *LocalRunner) Name() string { return "local" }

// Run invokes the interpreter and maps its exit status onto the execution
// shape: a non-zero exit becomes an execution-level error, not a transport
// failure, so normalization treats it like a remote sandbox error.
func (r *LocalRunner) Run(ctx context.Context, code string) (Execution, error) {
	cmd := exec.CommandContext(ctx, r.bin, "-c", code)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var execution Execution
	execution.Logs.Stdout = splitLines(stdout.String())
	execution.Logs.Stderr = splitLines(stderr.String())

	if runErr == nil {
		return execution, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		value := lastLine(stderr.String())
		if value == "" {
			value = runErr.Error()
		}
		execution.Error = &ExecError{
			Name:      "ExitError",
			Value:     value,
			Traceback: stderr.String(),
		}
		return execution, nil
	}

	// Interpreter missing, context cancelled, and the like: a collaborator
	// failure rather than a code failure.
	return Execution{}, runErr
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func lastLine(s string) string {
	lines := splitLines(s)
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
