package core

import "fmt"

// WorkflowID uniquely identifies a workflow definition.
type WorkflowID string

// WorkflowDefinition is the static, reusable template describing steps and
// their dependencies. Definitions are treated as immutable once handed to the
// engine; the validator, planner and optimizer never mutate them.
type WorkflowDefinition struct {
	ID          WorkflowID     `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description"`
	Steps       []WorkflowStep `json:"steps" yaml:"steps"`
}

// NewDefinition creates an empty workflow definition.
func NewDefinition(id WorkflowID, name string) *WorkflowDefinition {
	return &WorkflowDefinition{
		ID:    id,
		Name:  name,
		Steps: make([]WorkflowStep, 0),
	}
}

// AddStep appends a step to the definition.
func (d *WorkflowDefinition) AddStep(step *WorkflowStep) error {
	if step == nil {
		return fmt.Errorf("step cannot be nil")
	}
	if _, ok := d.Step(step.ID); ok {
		return fmt.Errorf("step %s already exists", step.ID)
	}
	d.Steps = append(d.Steps, *step)
	return nil
}

// Step retrieves a step by ID.
func (d *WorkflowDefinition) Step(id StepID) (*WorkflowStep, bool) {
	for i := range d.Steps {
		if d.Steps[i].ID == id {
			return &d.Steps[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the definition. Optimization and planning
// operate on copies so the caller's definition is never mutated.
func (d *WorkflowDefinition) Clone() *WorkflowDefinition {
	out := &WorkflowDefinition{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Steps:       make([]WorkflowStep, len(d.Steps)),
	}
	for i := range d.Steps {
		step := d.Steps[i]
		step.DependsOn = append([]StepID(nil), d.Steps[i].DependsOn...)
		if d.Steps[i].Config != nil {
			step.Config = make(map[string]any, len(d.Steps[i].Config))
			for k, v := range d.Steps[i].Config {
				step.Config[k] = v
			}
		}
		out.Steps[i] = step
	}
	return out
}

// StepIDs returns the step IDs in declaration order.
func (d *WorkflowDefinition) StepIDs() []StepID {
	ids := make([]StepID, len(d.Steps))
	for i := range d.Steps {
		ids[i] = d.Steps[i].ID
	}
	return ids
}
