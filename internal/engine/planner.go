package engine

import (
	"time"

	"github.com/seiforesti/govflow/internal/core"
)

// ExecutionBatch groups steps whose dependencies are fully satisfied by all
// prior batches, so they can run concurrently.
type ExecutionBatch struct {
	ID                int           `json:"id"`
	StepIDs           []core.StepID `json:"step_ids"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	Parallelizable    bool          `json:"parallelizable"`
}

// ExecutionPlan is the derived schedule for one definition: ordered batches
// plus the critical path. Recomputed per planning call, never persisted.
type ExecutionPlan struct {
	WorkflowID        core.WorkflowID  `json:"workflow_id"`
	Batches           []ExecutionBatch `json:"batches"`
	CriticalPath      []core.StepID    `json:"critical_path"`
	TotalSteps        int              `json:"total_steps"`
	EstimatedDuration time.Duration    `json:"estimated_duration"`
}

// CriticalSet returns the critical path as a membership set.
func (p *ExecutionPlan) CriticalSet() map[core.StepID]bool {
	set := make(map[core.StepID]bool, len(p.CriticalPath))
	for _, id := range p.CriticalPath {
		set[id] = true
	}
	return set
}

// Planner builds execution plans from workflow definitions.
type Planner struct {
	estimates map[core.StepType]time.Duration
}

// NewPlanner creates a planner with default per-type duration estimates.
func NewPlanner() *Planner {
	return &Planner{estimates: defaultStepEstimates()}
}

// WithEstimates overrides per-type duration estimates.
func (p *Planner) WithEstimates(estimates map[core.StepType]time.Duration) *Planner {
	for t, d := range estimates {
		p.estimates[t] = d
	}
	return p
}

// defaultStepEstimates reflects typical durations per step type. Data-source
// scans dominate; catalog and analytics steps are comparatively cheap.
func defaultStepEstimates() map[core.StepType]time.Duration {
	return map[core.StepType]time.Duration{
		core.StepTypeDataSource:     5 * time.Minute,
		core.StepTypeScanRule:       2 * time.Minute,
		core.StepTypeClassification: 3 * time.Minute,
		core.StepTypeCompliance:     2 * time.Minute,
		core.StepTypeCatalog:        time.Minute,
		core.StepTypeScanLogic:      2 * time.Minute,
		core.StepTypeAIService:      4 * time.Minute,
		core.StepTypeAnalytics:      time.Minute,
		core.StepTypeCustom:         2 * time.Minute,
	}
}

// StepEstimate returns the planning estimate for a step: its explicit
// override when set, otherwise the per-type default.
func (p *Planner) StepEstimate(step *core.WorkflowStep) time.Duration {
	if step.EstimatedDuration > 0 {
		return step.EstimatedDuration
	}
	if d, ok := p.estimates[step.Type]; ok {
		return d
	}
	return 2 * time.Minute
}

// BuildPlan topologically batches a definition's steps and computes the
// critical path. Batch k contains exactly the steps whose dependencies are
// all contained in batches 0..k-1, maximizing intra-batch parallelism.
//
// The definition must be acyclic with resolvable dependencies; callers are
// expected to validate first. A graph where no progress can be made returns
// an EXECUTION_STUCK state error instead of looping.
func (p *Planner) BuildPlan(def *core.WorkflowDefinition) (*ExecutionPlan, error) {
	plan := &ExecutionPlan{
		WorkflowID: def.ID,
		TotalSteps: len(def.Steps),
	}
	if len(def.Steps) == 0 {
		return plan, nil
	}

	graph := BuildDependencyGraph(def.Steps)

	assigned := make(map[core.StepID]bool, len(def.Steps))
	for len(assigned) < len(def.Steps) {
		batch := ExecutionBatch{ID: len(plan.Batches)}
		var batchMax time.Duration

		// Definition order within a batch keeps plans deterministic.
		for i := range def.Steps {
			step := &def.Steps[i]
			if assigned[step.ID] {
				continue
			}
			ready := true
			for _, dep := range graph[step.ID] {
				if !assigned[dep] {
					ready = false
					break
				}
			}
			if ready {
				batch.StepIDs = append(batch.StepIDs, step.ID)
				if est := p.StepEstimate(step); est > batchMax {
					batchMax = est
				}
			}
		}

		if len(batch.StepIDs) == 0 {
			return nil, core.ErrState(core.CodeExecutionStuck,
				"cannot batch steps: unresolved or cyclic dependencies")
		}

		for _, id := range batch.StepIDs {
			assigned[id] = true
		}
		batch.EstimatedDuration = batchMax
		batch.Parallelizable = len(batch.StepIDs) > 1
		plan.Batches = append(plan.Batches, batch)
	}

	plan.CriticalPath, plan.EstimatedDuration = p.criticalPath(def, graph)
	return plan, nil
}

// criticalPath finds the dependency chain with the greatest cumulative
// estimated duration via memoized DFS over the (acyclic) graph.
func (p *Planner) criticalPath(def *core.WorkflowDefinition, graph DependencyGraph) ([]core.StepID, time.Duration) {
	cost := make(map[core.StepID]time.Duration, len(def.Steps))
	prev := make(map[core.StepID]core.StepID, len(def.Steps))

	var walk func(id core.StepID) time.Duration
	walk = func(id core.StepID) time.Duration {
		if c, ok := cost[id]; ok {
			return c
		}
		step, ok := def.Step(id)
		if !ok {
			cost[id] = 0
			return 0
		}
		var best time.Duration
		for _, dep := range graph[id] {
			if c := walk(dep); c > best {
				best = c
				prev[id] = dep
			}
		}
		total := best + p.StepEstimate(step)
		cost[id] = total
		return total
	}

	var endStep core.StepID
	var maxCost time.Duration
	for i := range def.Steps {
		id := def.Steps[i].ID
		if c := walk(id); c > maxCost || endStep == "" {
			maxCost = c
			endStep = id
		}
	}

	// Reconstruct from the end of the longest chain back to a root.
	var reversed []core.StepID
	for id := endStep; ; {
		reversed = append(reversed, id)
		next, ok := prev[id]
		if !ok {
			break
		}
		id = next
	}
	path := make([]core.StepID, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path, maxCost
}
