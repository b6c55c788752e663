package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/seiforesti/govflow/internal/core"
)

// Validator checks workflow definitions for structural correctness and
// produces diagnostic reports. Validation never throws: any internal failure
// is folded into the report as a critical VALIDATION_FAILURE error.
type Validator struct {
	planner  *Planner
	registry *HandlerRegistry
}

// NewValidator creates a validator using the given planner for performance
// estimation.
func NewValidator(planner *Planner) *Validator {
	if planner == nil {
		planner = NewPlanner()
	}
	return &Validator{planner: planner}
}

// WithRegistry enables per-step configuration checks using the registry's
// type-specific validators.
func (v *Validator) WithRegistry(reg *HandlerRegistry) *Validator {
	v.registry = reg
	return v
}

// Validate produces a full validation report for the definition. The report
// is always returned, never an error: Valid is true iff there are zero
// critical-severity errors. Complexity metrics and the performance estimate
// are computed regardless of pass/fail so even broken definitions yield
// diagnostics.
func (v *Validator) Validate(def *core.WorkflowDefinition) (report *core.ValidationReport) {
	report = &core.ValidationReport{WorkflowID: def.ID}

	defer func() {
		if r := recover(); r != nil {
			report.Errors = append(report.Errors, core.ValidationIssue{
				Code:     core.CodeValidationFailure,
				Severity: core.SeverityCritical,
				Message:  fmt.Sprintf("validation failed unexpectedly: %v", r),
			})
			report.Valid = false
		}
	}()

	v.checkStructure(def, report)
	v.checkDependencies(def, report)
	v.checkStepConfigs(def, report)
	v.analyzeComplexity(def, report)
	v.estimatePerformance(def, report)
	v.suggest(def, report)

	report.Valid = len(report.CriticalErrors()) == 0
	return report
}

// checkStructure verifies required fields and step ID uniqueness.
func (v *Validator) checkStructure(def *core.WorkflowDefinition, report *core.ValidationReport) {
	if strings.TrimSpace(def.Name) == "" {
		report.Errors = append(report.Errors, core.ValidationIssue{
			Code:         core.CodeEmptyName,
			Severity:     core.SeverityCritical,
			Message:      "workflow name is required",
			Location:     "name",
			SuggestedFix: "set a non-empty workflow name",
		})
	}
	if len(def.Steps) == 0 {
		report.Errors = append(report.Errors, core.ValidationIssue{
			Code:         core.CodeNoSteps,
			Severity:     core.SeverityCritical,
			Message:      "workflow must contain at least one step",
			Location:     "steps",
			SuggestedFix: "add at least one step to the workflow",
		})
		return
	}

	seen := make(map[core.StepID]bool, len(def.Steps))
	for i := range def.Steps {
		step := &def.Steps[i]
		if step.ID == "" {
			report.Errors = append(report.Errors, core.ValidationIssue{
				Code:     core.CodeStepIDRequired,
				Severity: core.SeverityCritical,
				Message:  fmt.Sprintf("step at position %d has no ID", i),
				Location: fmt.Sprintf("steps[%d].id", i),
			})
			continue
		}
		if seen[step.ID] {
			report.Errors = append(report.Errors, core.ValidationIssue{
				StepID:       step.ID,
				Code:         core.CodeDuplicateStepID,
				Severity:     core.SeverityCritical,
				Message:      fmt.Sprintf("duplicate step ID: %s", step.ID),
				Location:     fmt.Sprintf("steps[%d].id", i),
				SuggestedFix: "step IDs must be unique within a workflow",
			})
		}
		seen[step.ID] = true

		if step.Name == "" {
			report.Errors = append(report.Errors, core.ValidationIssue{
				StepID:   step.ID,
				Code:     core.CodeStepNameRequired,
				Severity: core.SeverityMajor,
				Message:  fmt.Sprintf("step %s has no name", step.ID),
				Location: fmt.Sprintf("steps[%d].name", i),
			})
		}
		if !step.Type.IsValid() {
			report.Errors = append(report.Errors, core.ValidationIssue{
				StepID:       step.ID,
				Code:         core.CodeUnknownStepType,
				Severity:     core.SeverityCritical,
				Message:      fmt.Sprintf("step %s has unknown type %q", step.ID, step.Type),
				Location:     fmt.Sprintf("steps[%d].type", i),
				SuggestedFix: fmt.Sprintf("use one of: %s", joinStepTypes()),
			})
		}
	}
}

// checkDependencies verifies every declared dependency resolves and that the
// graph is acyclic. Each cycle is reported as an arrow-joined chain.
func (v *Validator) checkDependencies(def *core.WorkflowDefinition, report *core.ValidationReport) {
	if len(def.Steps) == 0 {
		return
	}

	ids := make([]string, 0, len(def.Steps))
	for i := range def.Steps {
		ids = append(ids, string(def.Steps[i].ID))
	}

	for i := range def.Steps {
		step := &def.Steps[i]
		for _, dep := range step.DependsOn {
			if _, ok := def.Step(dep); ok {
				continue
			}
			issue := core.ValidationIssue{
				StepID:   step.ID,
				Code:     core.CodeMissingDependency,
				Severity: core.SeverityCritical,
				Message:  fmt.Sprintf("step %s depends on unknown step %q", step.ID, dep),
				Location: fmt.Sprintf("steps[%d].depends_on", i),
			}
			if matches := fuzzy.Find(string(dep), ids); len(matches) > 0 {
				issue.SuggestedFix = fmt.Sprintf("did you mean %q?", matches[0].Str)
			}
			report.Errors = append(report.Errors, issue)
		}
	}

	graph := BuildDependencyGraph(def.Steps)
	for _, cycle := range DetectCycles(graph) {
		parts := make([]string, len(cycle))
		for i, id := range cycle {
			parts[i] = string(id)
		}
		report.Errors = append(report.Errors, core.ValidationIssue{
			StepID:       cycle[0],
			Code:         core.CodeCircularDependency,
			Severity:     core.SeverityCritical,
			Message:      fmt.Sprintf("circular dependency: %s", strings.Join(parts, " -> ")),
			SuggestedFix: "break the cycle by removing one of the dependencies",
		})
	}
}

// checkStepConfigs runs type-specific configuration validators when a
// registry is attached. Rules live with the pluggable handlers, not here.
func (v *Validator) checkStepConfigs(def *core.WorkflowDefinition, report *core.ValidationReport) {
	if v.registry == nil {
		return
	}
	for i := range def.Steps {
		step := &def.Steps[i]
		if err := v.registry.ValidateConfig(step); err != nil {
			report.Errors = append(report.Errors, core.ValidationIssue{
				StepID:   step.ID,
				Code:     core.CodeInvalidStepConfig,
				Severity: core.SeverityMajor,
				Message:  fmt.Sprintf("step %s configuration invalid: %v", step.ID, err),
				Location: fmt.Sprintf("steps[%d].config", i),
			})
		}
	}
}

// analyzeComplexity fills the report's complexity metrics.
func (v *Validator) analyzeComplexity(def *core.WorkflowDefinition, report *core.ValidationReport) {
	m := core.ComplexityMetrics{StepCount: len(def.Steps)}
	for i := range def.Steps {
		m.DependencyCount += len(def.Steps[i].DependsOn)
		if _, ok := def.Steps[i].Config["condition"]; ok {
			m.ConditionalPaths++
		}
	}
	// Cyclomatic complexity over the dependency graph: E - N + 2.
	m.CyclomaticComplexity = m.DependencyCount - m.StepCount + 2
	if m.CyclomaticComplexity < 1 {
		m.CyclomaticComplexity = 1
	}
	report.Complexity = m
}

// estimatePerformance computes the plan-derived estimate. Definitions that
// cannot be planned (cycles, dangling references) still get a well-formed
// estimate with a zero duration and empty critical path.
func (v *Validator) estimatePerformance(def *core.WorkflowDefinition, report *core.ValidationReport) {
	var sequential time.Duration
	for i := range def.Steps {
		sequential += v.planner.StepEstimate(&def.Steps[i])
	}
	report.Performance.Parallelization.SequentialSeconds = sequential.Seconds()

	plan, err := v.planner.BuildPlan(def)
	if err != nil || plan.TotalSteps == 0 {
		report.Performance.CriticalPath = []core.StepID{}
		return
	}

	report.Performance.EstimatedDuration = plan.EstimatedDuration
	report.Performance.CriticalPath = plan.CriticalPath

	pa := &report.Performance.Parallelization
	pa.BatchCount = len(plan.Batches)
	for _, b := range plan.Batches {
		if len(b.StepIDs) > pa.MaxBatchWidth {
			pa.MaxBatchWidth = len(b.StepIDs)
		}
		if len(b.StepIDs) == 1 {
			pa.SequentialSteps++
		}
	}
	if plan.TotalSteps > 0 {
		pa.ParallelRatio = 1 - float64(pa.SequentialSteps)/float64(plan.TotalSteps)
	}
	if plan.EstimatedDuration > 0 {
		pa.SpeedupEstimateX = sequential.Seconds() / plan.EstimatedDuration.Seconds()
	}

	report.Complexity.NestingDepth = len(plan.Batches)
	report.Complexity.ParallelBranches = pa.MaxBatchWidth

	// The slowest step on the critical path bounds the whole run.
	var slowest core.StepID
	var slowestEst time.Duration
	for _, id := range plan.CriticalPath {
		if step, ok := def.Step(id); ok {
			if est := v.planner.StepEstimate(step); est > slowestEst {
				slowestEst = est
				slowest = id
			}
		}
	}
	if slowest != "" {
		report.Performance.Bottlenecks = append(report.Performance.Bottlenecks, core.Bottleneck{
			StepID: slowest,
			Reason: fmt.Sprintf("longest step on the critical path (estimated %s)", slowestEst),
		})
	}

	// Aggregate declared resource requirements across steps.
	for i := range def.Steps {
		if mb, ok := numericConfig(def.Steps[i].Config, "memory_mb"); ok {
			report.Performance.Resources.MemoryBytes += uint64(mb * 1024 * 1024)
		}
		if cores, ok := numericConfig(def.Steps[i].Config, "cpu_cores"); ok {
			report.Performance.Resources.CPUPercent += cores * 100
		}
	}
}

// suggest derives optimization suggestions and warnings from the estimates.
func (v *Validator) suggest(def *core.WorkflowDefinition, report *core.ValidationReport) {
	pa := report.Performance.Parallelization
	if pa.SpeedupEstimateX > 1.2 {
		report.Suggestions = append(report.Suggestions, core.OptimizationSuggestion{
			Type:                 "parallelization",
			Priority:             1,
			Description:          fmt.Sprintf("independent steps can run concurrently for an estimated %.1fx speedup", pa.SpeedupEstimateX),
			EstimatedImprovement: (1 - 1/pa.SpeedupEstimateX) * 100,
			Implementation:       "execute plan batches with concurrent step dispatch",
		})
	}

	sources := 0
	for i := range def.Steps {
		if def.Steps[i].Type == core.StepTypeDataSource {
			sources++
		}
	}
	if sources > 1 {
		report.Suggestions = append(report.Suggestions, core.OptimizationSuggestion{
			Type:                 "caching",
			Priority:             2,
			Description:          fmt.Sprintf("%d data source steps may rescan overlapping assets", sources),
			EstimatedImprovement: 10,
			Implementation:       "cache scan results shared between data source steps",
		})
	}

	if len(def.Steps) > 1 {
		dependents := BuildDependencyGraph(def.Steps).Dependents()
		for i := range def.Steps {
			step := &def.Steps[i]
			if len(step.DependsOn) == 0 && len(dependents[step.ID]) == 0 {
				report.Warnings = append(report.Warnings, core.ValidationWarning{
					StepID:         step.ID,
					Code:           "ISOLATED_STEP",
					Message:        fmt.Sprintf("step %s is connected to no other step", step.ID),
					Impact:         core.ImpactLow,
					Recommendation: "confirm the step is intentional or wire it into the dependency graph",
				})
			}
		}
	}
}

func joinStepTypes() string {
	types := core.StepTypes()
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func numericConfig(cfg map[string]any, key string) (float64, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}
	switch n := val.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
