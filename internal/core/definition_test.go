package core

import (
	"reflect"
	"testing"
)

func TestWorkflowDefinition_AddStep(t *testing.T) {
	def := NewDefinition("wf-1", "Test")

	if err := def.AddStep(NewStep("a", "A", StepTypeCustom)); err != nil {
		t.Fatalf("AddStep() error = %v", err)
	}
	if err := def.AddStep(NewStep("a", "A again", StepTypeCustom)); err == nil {
		t.Error("AddStep() should reject duplicate IDs")
	}
	if err := def.AddStep(nil); err == nil {
		t.Error("AddStep() should reject nil")
	}

	if len(def.Steps) != 1 {
		t.Errorf("Steps = %d, want 1", len(def.Steps))
	}
}

func TestWorkflowDefinition_Step(t *testing.T) {
	def := NewDefinition("wf-1", "Test")
	_ = def.AddStep(NewStep("a", "A", StepTypeCustom))

	step, ok := def.Step("a")
	if !ok || step.Name != "A" {
		t.Errorf("Step(a) = %v, %v", step, ok)
	}
	if _, ok := def.Step("missing"); ok {
		t.Error("Step(missing) should report absence")
	}
}

func TestWorkflowDefinition_Clone(t *testing.T) {
	def := NewDefinition("wf-1", "Original")
	_ = def.AddStep(NewStep("a", "A", StepTypeDataSource).
		WithConfig(map[string]any{"source": "s3://bucket"}))
	_ = def.AddStep(NewStep("b", "B", StepTypeCatalog).WithDependsOn("a"))

	clone := def.Clone()
	if !reflect.DeepEqual(def, clone) {
		t.Fatal("clone should equal the original")
	}

	clone.Steps[0].Config["source"] = "changed"
	clone.Steps[1].DependsOn[0] = "other"
	if def.Steps[0].Config["source"] != "s3://bucket" {
		t.Error("clone config must not share storage with the original")
	}
	if def.Steps[1].DependsOn[0] != "a" {
		t.Error("clone dependencies must not share storage with the original")
	}
}

func TestWorkflowDefinition_StepIDs(t *testing.T) {
	def := NewDefinition("wf-1", "Test")
	_ = def.AddStep(NewStep("first", "F", StepTypeCustom))
	_ = def.AddStep(NewStep("second", "S", StepTypeCustom))

	want := []StepID{"first", "second"}
	if got := def.StepIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("StepIDs() = %v, want %v", got, want)
	}
}
