package sandbox_test

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morahq/mora/internal/sandbox"
)

// The local runner only needs an interpreter that accepts -c; sh keeps the
// tests independent of a Python installation.
func shOrSkip(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	return "sh"
}

func TestLocalRunnerCapturesStdout(t *testing.T) {
	r := sandbox.NewLocalRunner(shOrSkip(t))
	execution, err := r.Run(context.Background(), "echo one; echo two")
	require.NoError(t, err)

	assert.Equal(t, []string{"one", "two"}, execution.Logs.Stdout)
	assert.Nil(t, execution.Error)

	got := sandbox.Normalize(execution)
	assert.True(t, got.Success)
	assert.Equal(t, "one\ntwo", got.Output)
}

func TestLocalRunnerNonZeroExitBecomesExecError(t *testing.T) {
	r := sandbox.NewLocalRunner(shOrSkip(t))
	execution, err := r.Run(context.Background(), "echo oops >&2; exit 3")
	require.NoError(t, err)

	require.NotNil(t, execution.Error)
	assert.Equal(t, "ExitError", execution.Error.Name)
	assert.Equal(t, "oops", execution.Error.Value)

	got := sandbox.Normalize(execution)
	assert.False(t, got.Success)
	assert.Equal(t, []string{"oops"}, got.Logs)
}

func TestLocalRunnerMissingInterpreter(t *testing.T) {
	r := sandbox.NewLocalRunner("definitely-not-an-interpreter-binary")
	_, err := r.Run(context.Background(), "echo hi")
	assert.Error(t, err)
}

func TestLocalRunnerDefaultBinary(t *testing.T) {
	r := sandbox.NewLocalRunner("")
	assert.Equal(t, "local", r.Name())
}
