package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiforesti/govflow/internal/core"
)

const sampleYAML = `
workflow:
  id: wf-pii-scan
  name: PII Scan
  description: Scan and classify warehouse tables
  steps:
    - id: scan
      name: Scan warehouse
      type: data_source
      config:
        source: postgres://warehouse
      estimated_duration: 10m
    - id: classify
      name: Classify columns
      type: classification
      depends_on: [scan]
context:
  user_id: alice
  timeout: 2h
  parameters:
    tenant: acme
  environment:
    name: prod
    type: kubernetes
    max_parallel_steps: 4
  retry:
    enabled: true
    max_retries: 5
    backoff: linear
    base_delay: 2s
    max_delay: 1m
`

const sampleJSON = `{
  "workflow": {
    "id": "wf-json",
    "name": "JSON Flow",
    "steps": [
      {"id": "only", "name": "Only", "type": "catalog"}
    ]
  }
}`

func TestParse_YAML(t *testing.T) {
	m, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	def, err := m.Definition()
	require.NoError(t, err)

	assert.Equal(t, core.WorkflowID("wf-pii-scan"), def.ID)
	assert.Equal(t, "PII Scan", def.Name)
	require.Len(t, def.Steps, 2)

	scan := def.Steps[0]
	assert.Equal(t, core.StepTypeDataSource, scan.Type)
	assert.Equal(t, 10*time.Minute, scan.EstimatedDuration)
	assert.Equal(t, "postgres://warehouse", scan.Config["source"])

	classify := def.Steps[1]
	assert.Equal(t, []core.StepID{"scan"}, classify.DependsOn)
	assert.Zero(t, classify.EstimatedDuration)
}

func TestParse_JSON(t *testing.T) {
	m, err := Parse([]byte(sampleJSON))
	require.NoError(t, err)

	def, err := m.Definition()
	require.NoError(t, err)
	assert.Equal(t, core.WorkflowID("wf-json"), def.ID)
	require.Len(t, def.Steps, 1)
	assert.Equal(t, core.StepTypeCatalog, def.Steps[0].Type)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("not: [valid"))
	assert.Error(t, err)

	_, err = Parse([]byte("unrelated: document"))
	assert.Error(t, err, "a file without a workflow section should be rejected")
}

func TestManifest_Definition_BadDuration(t *testing.T) {
	m, err := Parse([]byte(`
workflow:
  id: wf-bad
  name: Bad
  steps:
    - id: s
      name: S
      type: custom
      estimated_duration: soon
`))
	require.NoError(t, err)

	_, err = m.Definition()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "estimated_duration")
}

func TestManifest_ExecutionContext(t *testing.T) {
	m, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	ec, err := m.ExecutionContext()
	require.NoError(t, err)

	assert.Equal(t, core.WorkflowID("wf-pii-scan"), ec.WorkflowID)
	assert.Equal(t, "alice", ec.UserID)
	assert.Equal(t, 2*time.Hour, ec.Timeout)
	assert.Equal(t, "acme", ec.Parameters["tenant"])
	assert.Equal(t, 4, ec.Environment.Constraints.MaxParallelSteps)

	assert.True(t, m.HasRetryPolicy())
	assert.Equal(t, 5, ec.Retry.MaxRetries)
	assert.Equal(t, core.BackoffLinear, ec.Retry.Backoff)
	assert.Equal(t, 2*time.Second, ec.Retry.BaseDelay)
	assert.Equal(t, time.Minute, ec.Retry.MaxDelay)
}

func TestManifest_ExecutionContext_Defaults(t *testing.T) {
	m, err := Parse([]byte(sampleJSON))
	require.NoError(t, err)

	ec, err := m.ExecutionContext()
	require.NoError(t, err)

	assert.False(t, m.HasRetryPolicy())
	assert.Equal(t, core.WorkflowID("wf-json"), ec.WorkflowID)
	assert.NotEmpty(t, ec.ExecutionID)
	assert.Zero(t, ec.Timeout)
}

func TestManifest_ExecutionContext_BadRetryBackoff(t *testing.T) {
	m, err := Parse([]byte(`
workflow:
  id: wf-bad
  name: Bad
  steps:
    - id: s
      name: S
      type: custom
context:
  retry:
    enabled: true
    backoff: quadratic
`))
	require.NoError(t, err)

	_, err = m.ExecutionContext()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backoff")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "wf-pii-scan", m.Workflow.ID)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
