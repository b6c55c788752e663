package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommand_Simulate(t *testing.T) {
	path := writeWorkflow(t, sampleWorkflow)

	out, err := execute(t, "run", path, "--simulate", "-o", "text")
	require.NoError(t, err)

	assert.Contains(t, out, "wf-scan")
	assert.Contains(t, out, "completed: 2")
	assert.Contains(t, out, "step scan")
	assert.Contains(t, out, "step classify")
}

func TestRunCommand_NoHandlersFails(t *testing.T) {
	path := writeWorkflow(t, sampleWorkflow)

	out, err := execute(t, "run", path, "--simulate=false", "-o", "text")
	require.Error(t, err)

	assert.Contains(t, out, "STEP_NOT_IMPLEMENTED")
}

func TestRunCommand_CyclicWorkflowFails(t *testing.T) {
	path := writeWorkflow(t, cyclicWorkflow)

	_, err := execute(t, "run", path, "--simulate")
	assert.Error(t, err)
}

func TestOptimizeCommand(t *testing.T) {
	path := writeWorkflow(t, sampleWorkflow)

	out, err := execute(t, "optimize", path, "-o", "text")
	require.NoError(t, err)

	assert.Contains(t, out, "wf-scan")
	assert.Contains(t, out, "strategies applied")
}

func TestOptimizeCommand_JSON(t *testing.T) {
	path := writeWorkflow(t, sampleWorkflow)

	out, err := execute(t, "optimize", path, "-o", "json")
	require.NoError(t, err)

	assert.Contains(t, out, `"workflow_id"`)
}
