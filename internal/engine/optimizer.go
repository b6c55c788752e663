package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/seiforesti/govflow/internal/core"
)

// OptimizationGoals selects which dimensions the optimizer analyzes.
type OptimizationGoals struct {
	Performance        bool `json:"performance"`
	Cost               bool `json:"cost"`
	Reliability        bool `json:"reliability"`
	ResourceEfficiency bool `json:"resource_efficiency"`
}

// DefaultGoals enables every optimization dimension.
func DefaultGoals() OptimizationGoals {
	return OptimizationGoals{
		Performance:        true,
		Cost:               true,
		Reliability:        true,
		ResourceEfficiency: true,
	}
}

// AppliedStrategy records one optimization strategy the analyzer applied.
type AppliedStrategy struct {
	Type                 string  `json:"type"`
	Description          string  `json:"description"`
	EstimatedImprovement float64 `json:"estimated_improvement_pct"`
}

// ImprovementMetrics holds before/after deltas per dimension, in percent.
// Values are only non-zero when the underlying planner numbers substantiate
// a difference.
type ImprovementMetrics struct {
	PerformanceGainPct     float64 `json:"performance_gain_pct"`
	CostReductionPct       float64 `json:"cost_reduction_pct"`
	ReliabilityIncreasePct float64 `json:"reliability_increase_pct"`
	ResourceEfficiencyPct  float64 `json:"resource_efficiency_pct"`
}

// OptimizationResult is the advisory outcome of analyzing a definition.
// The original definition is never mutated; Optimized is an independent copy.
type OptimizationResult struct {
	WorkflowID      core.WorkflowID          `json:"workflow_id"`
	Original        *core.WorkflowDefinition `json:"original"`
	Optimized       *core.WorkflowDefinition `json:"optimized"`
	Applied         []AppliedStrategy        `json:"applied,omitempty"`
	Improvements    ImprovementMetrics       `json:"improvements"`
	Recommendations []string                 `json:"recommendations,omitempty"`
}

// Optimizer proposes optimization strategies for workflow definitions and
// projects their impact from planner estimates.
type Optimizer struct {
	planner *Planner
}

// NewOptimizer creates an optimizer using the given planner.
func NewOptimizer(planner *Planner) *Optimizer {
	if planner == nil {
		planner = NewPlanner()
	}
	return &Optimizer{planner: planner}
}

// Optimize analyzes a definition against the goals. It may be invoked
// independently of any run, at any time. Definitions that cannot be planned
// (cycles, unresolved dependencies) fail with an OptimizationError; a
// definition with nothing to improve yields a successful result with no
// applied strategies.
func (o *Optimizer) Optimize(def *core.WorkflowDefinition, goals OptimizationGoals) (*OptimizationResult, error) {
	plan, err := o.planner.BuildPlan(def)
	if err != nil {
		return nil, &core.OptimizationError{WorkflowID: def.ID, Cause: err}
	}

	result := &OptimizationResult{
		WorkflowID: def.ID,
		Original:   def,
		Optimized:  def.Clone(),
	}

	var sequential time.Duration
	for i := range def.Steps {
		sequential += o.planner.StepEstimate(&def.Steps[i])
	}

	if goals.Performance && sequential > 0 && plan.EstimatedDuration < sequential {
		gain := (1 - plan.EstimatedDuration.Seconds()/sequential.Seconds()) * 100
		result.Improvements.PerformanceGainPct = gain
		result.Applied = append(result.Applied, AppliedStrategy{
			Type: "parallelization",
			Description: fmt.Sprintf("batched %d steps into %d parallel batches (%s sequential -> %s planned)",
				plan.TotalSteps, len(plan.Batches), sequential.Round(time.Second), plan.EstimatedDuration.Round(time.Second)),
			EstimatedImprovement: gain,
		})
	}

	if goals.Cost {
		if dupes := o.duplicateScanTargets(def); len(dupes) > 0 {
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("data source steps %v scan the same target; cache or merge them to reduce scan cost", dupes))
		}
	}

	if goals.Reliability {
		result.Recommendations = append(result.Recommendations,
			"enable the execution context retry policy so transient step failures are retried with backoff")
		for _, id := range plan.CriticalPath {
			if step, ok := def.Step(id); ok && step.Type == core.StepTypeAIService {
				result.Recommendations = append(result.Recommendations,
					fmt.Sprintf("critical-path step %s calls an AI service; add a fallback or move it off the critical path", id))
			}
		}
	}

	if goals.ResourceEfficiency {
		widest := 0
		for _, b := range plan.Batches {
			if len(b.StepIDs) > widest {
				widest = len(b.StepIDs)
			}
		}
		if widest > 4 {
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("widest batch runs %d steps concurrently; set environment max_parallel_steps to bound resource spikes", widest))
		}
	}

	return result, nil
}

// duplicateScanTargets finds data source steps whose configured target
// overlaps with another step's.
func (o *Optimizer) duplicateScanTargets(def *core.WorkflowDefinition) []core.StepID {
	byTarget := make(map[string][]core.StepID)
	for i := range def.Steps {
		step := &def.Steps[i]
		if step.Type != core.StepTypeDataSource {
			continue
		}
		target, _ := step.Config["source"].(string)
		if target == "" {
			continue
		}
		byTarget[target] = append(byTarget[target], step.ID)
	}

	var dupes []core.StepID
	for _, ids := range byTarget {
		if len(ids) > 1 {
			dupes = append(dupes, ids...)
		}
	}
	sort.Slice(dupes, func(i, j int) bool { return dupes[i] < dupes[j] })
	return dupes
}
