package engine

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/seiforesti/govflow/internal/core"
)

func validDefinition() *core.WorkflowDefinition {
	def := core.NewDefinition("wf-valid", "Valid Workflow")
	def.Steps = []core.WorkflowStep{
		*core.NewStep("scan", "Scan sources", core.StepTypeDataSource),
		*core.NewStep("classify", "Classify assets", core.StepTypeClassification).WithDependsOn("scan"),
		*core.NewStep("check", "Compliance check", core.StepTypeCompliance).WithDependsOn("classify"),
	}
	return def
}

func TestValidator_Validate_ValidWorkflow(t *testing.T) {
	report := NewValidator(nil).Validate(validDefinition())

	if !report.Valid {
		t.Fatalf("Validate() invalid, errors = %v", report.Errors)
	}
	if len(report.Errors) != 0 {
		t.Errorf("got %d errors, want 0", len(report.Errors))
	}
	if report.Complexity.StepCount != 3 {
		t.Errorf("StepCount = %d, want 3", report.Complexity.StepCount)
	}
	if report.Performance.EstimatedDuration == 0 {
		t.Error("EstimatedDuration should be non-zero for a valid workflow")
	}
}

func TestValidator_Validate_EmptyName(t *testing.T) {
	def := validDefinition()
	def.Name = "   "

	report := NewValidator(nil).Validate(def)

	if report.Valid {
		t.Error("workflow with blank name should be invalid")
	}
	if !report.HasError(core.CodeEmptyName) {
		t.Errorf("errors = %v, want %s", report.Errors, core.CodeEmptyName)
	}
}

func TestValidator_Validate_NoSteps(t *testing.T) {
	def := core.NewDefinition("wf-empty", "Empty")

	report := NewValidator(nil).Validate(def)

	if report.Valid {
		t.Error("workflow without steps should be invalid")
	}
	if !report.HasError(core.CodeNoSteps) {
		t.Errorf("errors = %v, want %s", report.Errors, core.CodeNoSteps)
	}
	// Diagnostics are still well-formed: an estimate exists, it is just empty.
	if report.Performance.EstimatedDuration != 0 {
		t.Errorf("EstimatedDuration = %v, want 0", report.Performance.EstimatedDuration)
	}
	if report.Performance.CriticalPath == nil || len(report.Performance.CriticalPath) != 0 {
		t.Errorf("CriticalPath = %v, want empty non-nil", report.Performance.CriticalPath)
	}
}

func TestValidator_Validate_DuplicateStepID(t *testing.T) {
	def := validDefinition()
	def.Steps = append(def.Steps, *core.NewStep("scan", "Scan again", core.StepTypeDataSource))

	report := NewValidator(nil).Validate(def)

	if report.Valid {
		t.Error("workflow with duplicate step IDs should be invalid")
	}
	if !report.HasError(core.CodeDuplicateStepID) {
		t.Errorf("errors = %v, want %s", report.Errors, core.CodeDuplicateStepID)
	}
}

func TestValidator_Validate_MissingStepName(t *testing.T) {
	def := validDefinition()
	def.Steps[1].Name = ""

	report := NewValidator(nil).Validate(def)

	// Missing names are major, not critical: the workflow stays valid.
	if !report.Valid {
		t.Errorf("workflow should remain valid, errors = %v", report.Errors)
	}
	if !report.HasError(core.CodeStepNameRequired) {
		t.Errorf("errors = %v, want %s", report.Errors, core.CodeStepNameRequired)
	}
}

func TestValidator_Validate_UnknownStepType(t *testing.T) {
	def := validDefinition()
	def.Steps[0].Type = core.StepType("quantum")

	report := NewValidator(nil).Validate(def)

	if report.Valid {
		t.Error("workflow with unknown step type should be invalid")
	}
	if !report.HasError(core.CodeUnknownStepType) {
		t.Errorf("errors = %v, want %s", report.Errors, core.CodeUnknownStepType)
	}
}

func TestValidator_Validate_MissingDependency(t *testing.T) {
	def := validDefinition()
	def.Steps[2].DependsOn = []core.StepID{"clasify"} // typo for classify

	report := NewValidator(nil).Validate(def)

	if report.Valid {
		t.Error("workflow with unresolved dependency should be invalid")
	}

	var found *core.ValidationIssue
	for i := range report.Errors {
		if report.Errors[i].Code == core.CodeMissingDependency {
			found = &report.Errors[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("errors = %v, want %s", report.Errors, core.CodeMissingDependency)
	}
	if !strings.Contains(found.SuggestedFix, "classify") {
		t.Errorf("SuggestedFix = %q, want fuzzy match for classify", found.SuggestedFix)
	}
}

func TestValidator_Validate_CircularDependency(t *testing.T) {
	def := core.NewDefinition("wf-cycle", "Cycle")
	def.Steps = []core.WorkflowStep{
		*core.NewStep("x", "X", core.StepTypeCustom).WithDependsOn("y"),
		*core.NewStep("y", "Y", core.StepTypeCustom).WithDependsOn("x"),
	}

	report := NewValidator(nil).Validate(def)

	if report.Valid {
		t.Error("cyclic workflow should be invalid")
	}

	count := 0
	var msg string
	for _, e := range report.Errors {
		if e.Code == core.CodeCircularDependency {
			count++
			msg = e.Message
		}
	}
	if count != 1 {
		t.Fatalf("got %d circular dependency errors, want exactly 1", count)
	}
	if !strings.Contains(msg, " -> ") {
		t.Errorf("message %q should name the cycle chain", msg)
	}
}

func TestValidator_Validate_ConfigValidator(t *testing.T) {
	registry := NewHandlerRegistry()
	if err := registry.RegisterValidator(core.StepTypeDataSource, func(step *core.WorkflowStep) error {
		if _, ok := step.Config["source"]; !ok {
			return fmt.Errorf("source is required")
		}
		return nil
	}); err != nil {
		t.Fatalf("RegisterValidator() error = %v", err)
	}

	def := validDefinition()
	report := NewValidator(nil).WithRegistry(registry).Validate(def)

	// Config errors are major: reported but non-blocking.
	if !report.Valid {
		t.Errorf("workflow should remain valid, errors = %v", report.Errors)
	}
	if !report.HasError(core.CodeInvalidStepConfig) {
		t.Errorf("errors = %v, want %s", report.Errors, core.CodeInvalidStepConfig)
	}

	def.Steps[0].Config = map[string]any{"source": "postgres://warehouse"}
	report = NewValidator(nil).WithRegistry(registry).Validate(def)
	if report.HasError(core.CodeInvalidStepConfig) {
		t.Errorf("errors = %v, config should now pass", report.Errors)
	}
}

func TestValidator_Validate_ComplexityMetrics(t *testing.T) {
	def := validDefinition()
	def.Steps[1].Config = map[string]any{"condition": "row_count > 0"}

	report := NewValidator(nil).Validate(def)

	// 2 dependencies, 3 steps: E - N + 2 = 1.
	if report.Complexity.CyclomaticComplexity != 1 {
		t.Errorf("CyclomaticComplexity = %d, want 1", report.Complexity.CyclomaticComplexity)
	}
	if report.Complexity.DependencyCount != 2 {
		t.Errorf("DependencyCount = %d, want 2", report.Complexity.DependencyCount)
	}
	if report.Complexity.ConditionalPaths != 1 {
		t.Errorf("ConditionalPaths = %d, want 1", report.Complexity.ConditionalPaths)
	}
	if report.Complexity.NestingDepth != 3 {
		t.Errorf("NestingDepth = %d, want 3 sequential batches", report.Complexity.NestingDepth)
	}
}

func TestValidator_Validate_ParallelizationSuggestion(t *testing.T) {
	def := core.NewDefinition("wf-wide", "Wide")
	def.Steps = []core.WorkflowStep{
		*core.NewStep("root", "Root", core.StepTypeDataSource),
		*core.NewStep("c1", "Classify 1", core.StepTypeClassification).WithDependsOn("root"),
		*core.NewStep("c2", "Classify 2", core.StepTypeClassification).WithDependsOn("root"),
		*core.NewStep("c3", "Classify 3", core.StepTypeClassification).WithDependsOn("root"),
	}

	report := NewValidator(nil).Validate(def)

	var found bool
	for _, s := range report.Suggestions {
		if s.Type == "parallelization" {
			found = true
			if s.EstimatedImprovement <= 0 {
				t.Errorf("EstimatedImprovement = %v, want > 0", s.EstimatedImprovement)
			}
		}
	}
	if !found {
		t.Errorf("suggestions = %v, want parallelization", report.Suggestions)
	}
}

func TestValidator_Validate_IsolatedStepWarning(t *testing.T) {
	def := validDefinition()
	def.Steps = append(def.Steps, *core.NewStep("loner", "Loner", core.StepTypeAnalytics))

	report := NewValidator(nil).Validate(def)

	var found bool
	for _, w := range report.Warnings {
		if w.Code == "ISOLATED_STEP" && w.StepID == "loner" {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want ISOLATED_STEP for loner", report.Warnings)
	}
}

func TestValidator_Validate_ResourceAggregation(t *testing.T) {
	def := validDefinition()
	def.Steps[0].Config = map[string]any{"memory_mb": 512, "cpu_cores": 2}
	def.Steps[1].Config = map[string]any{"memory_mb": float64(256)}

	report := NewValidator(nil).Validate(def)

	wantMem := uint64(768 * 1024 * 1024)
	if report.Performance.Resources.MemoryBytes != wantMem {
		t.Errorf("MemoryBytes = %d, want %d", report.Performance.Resources.MemoryBytes, wantMem)
	}
	if report.Performance.Resources.CPUPercent != 200 {
		t.Errorf("CPUPercent = %v, want 200", report.Performance.Resources.CPUPercent)
	}
}

func TestValidator_Validate_Deterministic(t *testing.T) {
	// A definition with several problems at once: a duplicate ID, a missing
	// dependency, an unknown type, a cycle, and an isolated step. Repeated
	// validation must report the same findings in the same order.
	def := core.NewDefinition("wf-det", "Deterministic")
	def.Steps = []core.WorkflowStep{
		*core.NewStep("scan", "Scan", core.StepTypeDataSource),
		*core.NewStep("scan", "Scan again", core.StepTypeDataSource),
		*core.NewStep("classify", "Classify", core.StepTypeClassification).WithDependsOn("clasify"),
		*core.NewStep("x", "X", core.StepTypeCustom).WithDependsOn("y"),
		*core.NewStep("y", "Y", core.StepTypeCustom).WithDependsOn("x"),
		{ID: "odd", Name: "Odd", Type: core.StepType("hologram")},
		*core.NewStep("loner", "Loner", core.StepTypeAnalytics),
	}

	signature := func(rep *core.ValidationReport) string {
		var b strings.Builder
		for _, e := range rep.Errors {
			fmt.Fprintf(&b, "E:%s:%s:%s;", e.Code, e.StepID, e.Message)
		}
		for _, w := range rep.Warnings {
			fmt.Fprintf(&b, "W:%s:%s;", w.Code, w.StepID)
		}
		return b.String()
	}

	v := NewValidator(nil)
	want := signature(v.Validate(def))
	if want == "" {
		t.Fatal("expected findings for a broken definition")
	}
	for i := 0; i < 50; i++ {
		if got := signature(v.Validate(def)); got != want {
			t.Fatalf("run %d: findings differ\ngot  %s\nwant %s", i, got, want)
		}
	}
}

func TestValidator_Validate_BottleneckOnCriticalPath(t *testing.T) {
	def := validDefinition()
	def.Steps[0].EstimatedDuration = time.Hour

	report := NewValidator(nil).Validate(def)

	if len(report.Performance.Bottlenecks) == 0 {
		t.Fatal("want at least one bottleneck")
	}
	if report.Performance.Bottlenecks[0].StepID != "scan" {
		t.Errorf("bottleneck = %v, want scan", report.Performance.Bottlenecks[0])
	}
}
