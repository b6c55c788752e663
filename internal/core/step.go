package core

import (
	"fmt"
	"time"
)

// StepID uniquely identifies a step within a workflow definition.
type StepID string

// StepType classifies the action a step performs. The set is closed:
// handlers are registered per type and dispatch is exhaustive.
type StepType string

const (
	StepTypeDataSource     StepType = "data_source"
	StepTypeScanRule       StepType = "scan_rule"
	StepTypeClassification StepType = "classification"
	StepTypeCompliance     StepType = "compliance"
	StepTypeCatalog        StepType = "catalog"
	StepTypeScanLogic      StepType = "scan_logic"
	StepTypeAIService      StepType = "ai_service"
	StepTypeAnalytics      StepType = "analytics"
	StepTypeCustom         StepType = "custom"
)

// StepTypes lists every known step type in a stable order.
func StepTypes() []StepType {
	return []StepType{
		StepTypeDataSource,
		StepTypeScanRule,
		StepTypeClassification,
		StepTypeCompliance,
		StepTypeCatalog,
		StepTypeScanLogic,
		StepTypeAIService,
		StepTypeAnalytics,
		StepTypeCustom,
	}
}

// IsValid reports whether the step type is one of the known values.
func (t StepType) IsValid() bool {
	switch t {
	case StepTypeDataSource, StepTypeScanRule, StepTypeClassification,
		StepTypeCompliance, StepTypeCatalog, StepTypeScanLogic,
		StepTypeAIService, StepTypeAnalytics, StepTypeCustom:
		return true
	}
	return false
}

// ParseStepType converts a string into a StepType.
func ParseStepType(s string) (StepType, error) {
	t := StepType(s)
	if !t.IsValid() {
		return "", ErrValidation(CodeUnknownStepType, fmt.Sprintf("unknown step type: %q", s))
	}
	return t, nil
}

// WorkflowStep is a single unit of work within a workflow definition.
// Config is an opaque key-value payload interpreted by the step's handler;
// the engine never inspects it beyond passing it through.
type WorkflowStep struct {
	ID        StepID         `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	Type      StepType       `json:"type" yaml:"type"`
	DependsOn []StepID       `json:"depends_on,omitempty" yaml:"depends_on"`
	Config    map[string]any `json:"config,omitempty" yaml:"config"`

	// EstimatedDuration overrides the per-type planning estimate when set.
	EstimatedDuration time.Duration `json:"estimated_duration,omitempty" yaml:"estimated_duration"`
}

// NewStep creates a step with required fields.
func NewStep(id StepID, name string, typ StepType) *WorkflowStep {
	return &WorkflowStep{
		ID:   id,
		Name: name,
		Type: typ,
	}
}

// WithDependsOn sets the step dependencies.
func (s *WorkflowStep) WithDependsOn(deps ...StepID) *WorkflowStep {
	s.DependsOn = deps
	return s
}

// WithConfig sets the opaque configuration payload.
func (s *WorkflowStep) WithConfig(cfg map[string]any) *WorkflowStep {
	s.Config = cfg
	return s
}

// WithEstimatedDuration sets an explicit planning estimate.
func (s *WorkflowStep) WithEstimatedDuration(d time.Duration) *WorkflowStep {
	s.EstimatedDuration = d
	return s
}

// Validate checks step invariants.
func (s *WorkflowStep) Validate() error {
	if s.ID == "" {
		return ErrValidation(CodeStepIDRequired, "step ID cannot be empty")
	}
	if s.Name == "" {
		return ErrValidation(CodeStepNameRequired, "step name cannot be empty")
	}
	if !s.Type.IsValid() {
		return ErrValidation(CodeUnknownStepType, fmt.Sprintf("step %s has unknown type %q", s.ID, s.Type))
	}
	return nil
}
