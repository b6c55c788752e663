package core

import (
	"errors"
	"testing"
	"time"
)

func TestStepType_IsValid(t *testing.T) {
	for _, typ := range StepTypes() {
		if !typ.IsValid() {
			t.Errorf("IsValid(%s) = false, want true", typ)
		}
	}
	if StepType("").IsValid() {
		t.Error("empty step type should be invalid")
	}
	if StepType("blockchain").IsValid() {
		t.Error("unknown step type should be invalid")
	}
}

func TestParseStepType(t *testing.T) {
	typ, err := ParseStepType("classification")
	if err != nil {
		t.Fatalf("ParseStepType() error = %v", err)
	}
	if typ != StepTypeClassification {
		t.Errorf("ParseStepType() = %s, want classification", typ)
	}

	_, err = ParseStepType("nonsense")
	if err == nil {
		t.Fatal("ParseStepType() should fail for unknown types")
	}
	var domErr *DomainError
	if !errors.As(err, &domErr) || domErr.Code != CodeUnknownStepType {
		t.Errorf("error = %v, want code %s", err, CodeUnknownStepType)
	}
}

func TestWorkflowStep_Builders(t *testing.T) {
	step := NewStep("scan", "Scan warehouse", StepTypeDataSource).
		WithDependsOn("setup").
		WithConfig(map[string]any{"source": "postgres://warehouse"}).
		WithEstimatedDuration(10 * time.Minute)

	if step.ID != "scan" || step.Name != "Scan warehouse" {
		t.Errorf("step = %+v, identity fields wrong", step)
	}
	if len(step.DependsOn) != 1 || step.DependsOn[0] != "setup" {
		t.Errorf("DependsOn = %v, want [setup]", step.DependsOn)
	}
	if step.EstimatedDuration != 10*time.Minute {
		t.Errorf("EstimatedDuration = %v, want 10m", step.EstimatedDuration)
	}
}

func TestWorkflowStep_Validate(t *testing.T) {
	tests := []struct {
		name     string
		step     *WorkflowStep
		wantCode string
	}{
		{"valid", NewStep("s", "S", StepTypeCustom), ""},
		{"missing id", NewStep("", "S", StepTypeCustom), CodeStepIDRequired},
		{"missing name", NewStep("s", "", StepTypeCustom), CodeStepNameRequired},
		{"bad type", NewStep("s", "S", StepType("warp")), CodeUnknownStepType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			var domErr *DomainError
			if !errors.As(err, &domErr) || domErr.Code != tt.wantCode {
				t.Errorf("Validate() = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}
