package core

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionID uniquely identifies a workflow run.
type ExecutionID string

// NewExecutionID generates a fresh execution identifier.
func NewExecutionID() ExecutionID {
	return ExecutionID(uuid.New().String())
}

// BackoffStrategy selects how retry delays grow between attempts.
type BackoffStrategy string

const (
	BackoffExponential BackoffStrategy = "exponential"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffFixed       BackoffStrategy = "fixed"
)

// IsValid reports whether the backoff strategy is a known value.
func (b BackoffStrategy) IsValid() bool {
	switch b {
	case BackoffExponential, BackoffLinear, BackoffFixed:
		return true
	}
	return false
}

// RetryPolicy configures per-step retry behavior for a run.
// When Enabled, the executor wraps each handler dispatch in a retry loop
// before recording a failure.
type RetryPolicy struct {
	Enabled         bool            `json:"enabled" yaml:"enabled"`
	MaxRetries      int             `json:"max_retries" yaml:"max_retries"`
	Backoff         BackoffStrategy `json:"backoff" yaml:"backoff"`
	BaseDelay       time.Duration   `json:"base_delay" yaml:"base_delay"`
	MaxDelay        time.Duration   `json:"max_delay" yaml:"max_delay"`
	RetryableErrors []string        `json:"retryable_errors,omitempty" yaml:"retryable_errors"`
}

// DefaultRetryPolicy returns the retry policy applied when a context does not
// carry one.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Enabled:    true,
		MaxRetries: 3,
		Backoff:    BackoffExponential,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// MonitoringConfig configures run observability.
type MonitoringConfig struct {
	LogLevel         string `json:"log_level" yaml:"log_level"`
	AlertingEnabled  bool   `json:"alerting_enabled" yaml:"alerting_enabled"`
	StreamingEnabled bool   `json:"streaming_enabled" yaml:"streaming_enabled"`
}

// ResourceConstraints bounds what a run may consume.
type ResourceConstraints struct {
	MaxCPUCores      float64 `json:"max_cpu_cores,omitempty" yaml:"max_cpu_cores"`
	MaxMemoryMB      int64   `json:"max_memory_mb,omitempty" yaml:"max_memory_mb"`
	MaxStorageMB     int64   `json:"max_storage_mb,omitempty" yaml:"max_storage_mb"`
	MaxParallelSteps int     `json:"max_parallel_steps,omitempty" yaml:"max_parallel_steps"`
}

// Environment describes where a run executes.
type Environment struct {
	Name        string              `json:"name" yaml:"name"`
	Type        string              `json:"type" yaml:"type"`
	Variables   map[string]string   `json:"variables,omitempty" yaml:"variables"`
	Secrets     map[string]string   `json:"secrets,omitempty" yaml:"secrets"`
	Resources   map[string]any      `json:"resources,omitempty" yaml:"resources"`
	Constraints ResourceConstraints `json:"constraints,omitempty" yaml:"constraints"`
}

// ExecutionContext carries per-run parameters. It is created once per
// execution request and is immutable during the run; step handlers receive it
// read-only.
type ExecutionContext struct {
	ExecutionID ExecutionID      `json:"execution_id" yaml:"execution_id"`
	WorkflowID  WorkflowID       `json:"workflow_id" yaml:"workflow_id"`
	UserID      string           `json:"user_id" yaml:"user_id"`
	WorkspaceID string           `json:"workspace_id,omitempty" yaml:"workspace_id"`
	StartedAt   time.Time        `json:"started_at" yaml:"started_at"`
	Timeout     time.Duration    `json:"timeout,omitempty" yaml:"timeout"`
	Parameters  map[string]any   `json:"parameters,omitempty" yaml:"parameters"`
	Environment Environment      `json:"environment" yaml:"environment"`
	Retry       RetryPolicy      `json:"retry" yaml:"retry"`
	Monitoring  MonitoringConfig `json:"monitoring" yaml:"monitoring"`
}

// NewExecutionContext creates a context for one run of the given workflow.
func NewExecutionContext(workflowID WorkflowID, userID string) *ExecutionContext {
	return &ExecutionContext{
		ExecutionID: NewExecutionID(),
		WorkflowID:  workflowID,
		UserID:      userID,
		StartedAt:   time.Now(),
		Parameters:  make(map[string]any),
		Retry:       DefaultRetryPolicy(),
		Monitoring:  MonitoringConfig{LogLevel: "info"},
	}
}

// WithTimeout sets the overall run timeout.
func (c *ExecutionContext) WithTimeout(d time.Duration) *ExecutionContext {
	c.Timeout = d
	return c
}

// WithWorkspace sets the workspace identifier.
func (c *ExecutionContext) WithWorkspace(id string) *ExecutionContext {
	c.WorkspaceID = id
	return c
}

// WithParameters sets the run input parameters.
func (c *ExecutionContext) WithParameters(params map[string]any) *ExecutionContext {
	c.Parameters = params
	return c
}

// WithRetry sets the retry policy.
func (c *ExecutionContext) WithRetry(p RetryPolicy) *ExecutionContext {
	c.Retry = p
	return c
}
