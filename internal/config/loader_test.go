package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiforesti/govflow/internal/core"
)

func TestLoader_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
	assert.Equal(t, 8, cfg.Engine.MaxParallelSteps)
	assert.True(t, cfg.Engine.ResourceSampling)
	assert.True(t, cfg.Retry.Enabled)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay)
}

func TestLoader_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
  format: json
engine:
  max_parallel_steps: 2
  step_estimates:
    data_source: 20m
retry:
  backoff: linear
`), 0o644))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 2, cfg.Engine.MaxParallelSteps)
	assert.Equal(t, "linear", cfg.Retry.Backoff)

	estimates := cfg.Engine.TypedStepEstimates()
	assert.Equal(t, 20*time.Minute, estimates[core.StepTypeDataSource])
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GOVFLOW_LOG_LEVEL", "warn")
	t.Setenv("GOVFLOW_ENGINE_MAX_PARALLEL_STEPS", "16")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 16, cfg.Engine.MaxParallelSteps)
}

func TestLoader_BadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: ["), 0o644))

	_, err := NewLoader().WithConfigFile(path).Load()
	assert.Error(t, err)
}

func TestRetryConfig_RetryPolicy(t *testing.T) {
	rc := RetryConfig{
		Enabled:    true,
		MaxRetries: 4,
		Backoff:    "fixed",
		BaseDelay:  2 * time.Second,
		MaxDelay:   time.Minute,
	}

	policy := rc.RetryPolicy()
	assert.Equal(t, core.BackoffFixed, policy.Backoff)
	assert.Equal(t, 4, policy.MaxRetries)

	// Unknown strategies fall back to exponential rather than failing.
	rc.Backoff = "warp"
	assert.Equal(t, core.BackoffExponential, rc.RetryPolicy().Backoff)
}

func TestEngineConfig_TypedStepEstimates_DropsUnknown(t *testing.T) {
	ec := EngineConfig{StepEstimates: map[string]time.Duration{
		"data_source": time.Minute,
		"hologram":    time.Hour,
	}}

	estimates := ec.TypedStepEstimates()
	assert.Len(t, estimates, 1)
	assert.Equal(t, time.Minute, estimates[core.StepTypeDataSource])
}
