package config

import (
	"time"

	"github.com/seiforesti/govflow/internal/core"
)

// Config holds all engine configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Engine EngineConfig `mapstructure:"engine"`
	Retry  RetryConfig  `mapstructure:"retry"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig configures planning and execution.
type EngineConfig struct {
	MaxParallelSteps int                      `mapstructure:"max_parallel_steps"`
	ResourceSampling bool                     `mapstructure:"resource_sampling"`
	StepEstimates    map[string]time.Duration `mapstructure:"step_estimates"`
}

// RetryConfig configures the default retry policy applied to runs whose
// context does not carry its own.
type RetryConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	MaxRetries int           `mapstructure:"max_retries"`
	Backoff    string        `mapstructure:"backoff"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
}

// RetryPolicy converts the configured defaults into a core policy.
func (c RetryConfig) RetryPolicy() core.RetryPolicy {
	policy := core.RetryPolicy{
		Enabled:    c.Enabled,
		MaxRetries: c.MaxRetries,
		Backoff:    core.BackoffStrategy(c.Backoff),
		BaseDelay:  c.BaseDelay,
		MaxDelay:   c.MaxDelay,
	}
	if !policy.Backoff.IsValid() {
		policy.Backoff = core.BackoffExponential
	}
	return policy
}

// TypedStepEstimates converts configured per-type estimates into typed keys,
// dropping unknown types.
func (c EngineConfig) TypedStepEstimates() map[core.StepType]time.Duration {
	out := make(map[core.StepType]time.Duration, len(c.StepEstimates))
	for name, d := range c.StepEstimates {
		if t, err := core.ParseStepType(name); err == nil {
			out[t] = d
		}
	}
	return out
}
