package core

import "time"

// Severity ranks validation errors. Only critical findings block validity.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Impact ranks validation warnings.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// ValidationIssue is one error found while validating a definition.
type ValidationIssue struct {
	StepID       StepID   `json:"step_id,omitempty"`
	Code         string   `json:"code"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	Location     string   `json:"location,omitempty"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
}

// ValidationWarning is an advisory finding that never blocks validity.
type ValidationWarning struct {
	StepID         StepID `json:"step_id,omitempty"`
	Code           string `json:"code"`
	Message        string `json:"message"`
	Impact         Impact `json:"impact"`
	Recommendation string `json:"recommendation,omitempty"`
}

// OptimizationSuggestion proposes an improvement to a definition.
type OptimizationSuggestion struct {
	Type                 string  `json:"type"`
	Priority             int     `json:"priority"`
	Description          string  `json:"description"`
	EstimatedImprovement float64 `json:"estimated_improvement_pct"`
	Implementation       string  `json:"implementation,omitempty"`
}

// ComplexityMetrics quantifies the structure of a definition.
type ComplexityMetrics struct {
	StepCount            int `json:"step_count"`
	DependencyCount      int `json:"dependency_count"`
	CyclomaticComplexity int `json:"cyclomatic_complexity"`
	NestingDepth         int `json:"nesting_depth"`
	ParallelBranches     int `json:"parallel_branches"`
	ConditionalPaths     int `json:"conditional_paths"`
}

// Bottleneck names a step limiting overall workflow throughput.
type Bottleneck struct {
	StepID StepID `json:"step_id"`
	Reason string `json:"reason"`
}

// ParallelizationAnalysis summarizes how much of a definition can run
// concurrently.
type ParallelizationAnalysis struct {
	BatchCount        int     `json:"batch_count"`
	MaxBatchWidth     int     `json:"max_batch_width"`
	SequentialSteps   int     `json:"sequential_steps"`
	ParallelRatio     float64 `json:"parallel_ratio"`
	SpeedupEstimateX  float64 `json:"speedup_estimate_x"`
	SequentialSeconds float64 `json:"sequential_seconds"`
}

// PerformanceEstimate projects the run characteristics of a definition.
// It is computed even for invalid definitions so diagnostics are always
// available.
type PerformanceEstimate struct {
	EstimatedDuration time.Duration           `json:"estimated_duration"`
	CriticalPath      []StepID                `json:"critical_path"`
	Parallelization   ParallelizationAnalysis `json:"parallelization"`
	Resources         ResourceUsage           `json:"resources"`
	Bottlenecks       []Bottleneck            `json:"bottlenecks,omitempty"`
}

// ValidationReport is the structured outcome of validating a definition.
type ValidationReport struct {
	WorkflowID  WorkflowID               `json:"workflow_id"`
	Valid       bool                     `json:"valid"`
	Errors      []ValidationIssue        `json:"errors,omitempty"`
	Warnings    []ValidationWarning      `json:"warnings,omitempty"`
	Suggestions []OptimizationSuggestion `json:"suggestions,omitempty"`
	Complexity  ComplexityMetrics        `json:"complexity"`
	Performance PerformanceEstimate      `json:"performance"`
}

// CriticalErrors returns only the critical-severity errors.
func (r *ValidationReport) CriticalErrors() []ValidationIssue {
	var out []ValidationIssue
	for _, e := range r.Errors {
		if e.Severity == SeverityCritical {
			out = append(out, e)
		}
	}
	return out
}

// HasError reports whether the report contains an error with the given code.
func (r *ValidationReport) HasError(code string) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}
