// Package manifest loads workflow definitions and execution settings from
// YAML or JSON files. Durations are written as strings ("5m", "1h30m") and
// parsed here; the core types carry real time.Duration values.
package manifest

import (
	"fmt"
	"os"
	"time"

	"github.com/seiforesti/govflow/internal/core"
	"gopkg.in/yaml.v3"
)

// Manifest is the decoded form of a workflow file.
type Manifest struct {
	Workflow workflowManifest `yaml:"workflow"`
	Context  *contextManifest `yaml:"context,omitempty"`
}

type workflowManifest struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []stepManifest `yaml:"steps"`
}

type stepManifest struct {
	ID                string         `yaml:"id"`
	Name              string         `yaml:"name"`
	Type              string         `yaml:"type"`
	DependsOn         []string       `yaml:"depends_on"`
	Config            map[string]any `yaml:"config"`
	EstimatedDuration string         `yaml:"estimated_duration"`
}

type contextManifest struct {
	UserID      string           `yaml:"user_id"`
	WorkspaceID string           `yaml:"workspace_id"`
	Timeout     string           `yaml:"timeout"`
	Parameters  map[string]any   `yaml:"parameters"`
	Environment *envManifest     `yaml:"environment,omitempty"`
	Retry       *retryManifest   `yaml:"retry,omitempty"`
	Monitoring  *monitorManifest `yaml:"monitoring,omitempty"`
}

type envManifest struct {
	Name             string            `yaml:"name"`
	Type             string            `yaml:"type"`
	Variables        map[string]string `yaml:"variables"`
	Secrets          map[string]string `yaml:"secrets"`
	MaxParallelSteps int               `yaml:"max_parallel_steps"`
}

type retryManifest struct {
	Enabled         bool     `yaml:"enabled"`
	MaxRetries      int      `yaml:"max_retries"`
	Backoff         string   `yaml:"backoff"`
	BaseDelay       string   `yaml:"base_delay"`
	MaxDelay        string   `yaml:"max_delay"`
	RetryableErrors []string `yaml:"retryable_errors"`
}

type monitorManifest struct {
	LogLevel         string `yaml:"log_level"`
	AlertingEnabled  bool   `yaml:"alerting_enabled"`
	StreamingEnabled bool   `yaml:"streaming_enabled"`
}

// Load reads and decodes a workflow file. YAML is a superset of JSON, so
// both formats decode through the same path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow file: %w", err)
	}
	return Parse(data)
}

// Parse decodes workflow file contents.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding workflow file: %w", err)
	}
	if m.Workflow.ID == "" && m.Workflow.Name == "" && len(m.Workflow.Steps) == 0 {
		return nil, fmt.Errorf("workflow file has no workflow section")
	}
	return &m, nil
}

// HasRetryPolicy reports whether the file carries its own retry section.
func (m *Manifest) HasRetryPolicy() bool {
	return m.Context != nil && m.Context.Retry != nil
}

// Definition converts the manifest's workflow section into a definition.
func (m *Manifest) Definition() (*core.WorkflowDefinition, error) {
	def := &core.WorkflowDefinition{
		ID:          core.WorkflowID(m.Workflow.ID),
		Name:        m.Workflow.Name,
		Description: m.Workflow.Description,
		Steps:       make([]core.WorkflowStep, 0, len(m.Workflow.Steps)),
	}
	for _, sm := range m.Workflow.Steps {
		step := core.WorkflowStep{
			ID:     core.StepID(sm.ID),
			Name:   sm.Name,
			Type:   core.StepType(sm.Type),
			Config: sm.Config,
		}
		for _, dep := range sm.DependsOn {
			step.DependsOn = append(step.DependsOn, core.StepID(dep))
		}
		if sm.EstimatedDuration != "" {
			d, err := time.ParseDuration(sm.EstimatedDuration)
			if err != nil {
				return nil, fmt.Errorf("step %q: invalid estimated_duration: %w", sm.ID, err)
			}
			step.EstimatedDuration = d
		}
		def.Steps = append(def.Steps, step)
	}
	return def, nil
}

// ExecutionContext builds a run context from the manifest's context section,
// falling back to defaults for anything unset. A manifest without a context
// section yields a default context for the workflow.
func (m *Manifest) ExecutionContext() (*core.ExecutionContext, error) {
	ec := core.NewExecutionContext(core.WorkflowID(m.Workflow.ID), "")
	cm := m.Context
	if cm == nil {
		return ec, nil
	}

	ec.UserID = cm.UserID
	ec.WorkspaceID = cm.WorkspaceID
	if cm.Parameters != nil {
		ec.Parameters = cm.Parameters
	}
	if cm.Timeout != "" {
		d, err := time.ParseDuration(cm.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid context timeout: %w", err)
		}
		ec.Timeout = d
	}

	if cm.Environment != nil {
		ec.Environment = core.Environment{
			Name:      cm.Environment.Name,
			Type:      cm.Environment.Type,
			Variables: cm.Environment.Variables,
			Secrets:   cm.Environment.Secrets,
			Constraints: core.ResourceConstraints{
				MaxParallelSteps: cm.Environment.MaxParallelSteps,
			},
		}
	}

	if cm.Retry != nil {
		policy := core.RetryPolicy{
			Enabled:         cm.Retry.Enabled,
			MaxRetries:      cm.Retry.MaxRetries,
			Backoff:         core.BackoffStrategy(cm.Retry.Backoff),
			RetryableErrors: cm.Retry.RetryableErrors,
		}
		if !policy.Backoff.IsValid() {
			if cm.Retry.Backoff != "" {
				return nil, fmt.Errorf("invalid retry backoff strategy %q", cm.Retry.Backoff)
			}
			policy.Backoff = core.BackoffExponential
		}
		if cm.Retry.BaseDelay != "" {
			d, err := time.ParseDuration(cm.Retry.BaseDelay)
			if err != nil {
				return nil, fmt.Errorf("invalid retry base_delay: %w", err)
			}
			policy.BaseDelay = d
		}
		if cm.Retry.MaxDelay != "" {
			d, err := time.ParseDuration(cm.Retry.MaxDelay)
			if err != nil {
				return nil, fmt.Errorf("invalid retry max_delay: %w", err)
			}
			policy.MaxDelay = d
		}
		ec.Retry = policy
	}

	if cm.Monitoring != nil {
		ec.Monitoring = core.MonitoringConfig{
			LogLevel:         cm.Monitoring.LogLevel,
			AlertingEnabled:  cm.Monitoring.AlertingEnabled,
			StreamingEnabled: cm.Monitoring.StreamingEnabled,
		}
	}

	return ec, nil
}
