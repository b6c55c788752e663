package core

import (
	"fmt"
	"sync"
	"time"
)

// ExecutionStatus represents the state of a run or of a single step result.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// LogLevel classifies log entries attached to executions and step results.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogEntry is a single structured log line captured during a run.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     LogLevel       `json:"level"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// StepMetrics holds timing and reliability numbers for one step execution.
type StepMetrics struct {
	ExecutionTime time.Duration `json:"execution_time"`
	WaitTime      time.Duration `json:"wait_time"`
	QueueTime     time.Duration `json:"queue_time"`
	Throughput    float64       `json:"throughput,omitempty"`
	ErrorRate     float64       `json:"error_rate"`
	RetryCount    int           `json:"retry_count"`
}

// ResourceUsage captures what one step (or a whole run) consumed.
type ResourceUsage struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryBytes   uint64  `json:"memory_bytes"`
	StorageBytes  uint64  `json:"storage_bytes"`
	NetworkBytes  uint64  `json:"network_bytes"`
	IOOps         uint64  `json:"io_ops"`
	DBConnections int     `json:"db_connections"`
}

// Add accumulates another usage sample into this one.
func (r *ResourceUsage) Add(other ResourceUsage) {
	if other.CPUPercent > r.CPUPercent {
		r.CPUPercent = other.CPUPercent
	}
	r.MemoryBytes += other.MemoryBytes
	r.StorageBytes += other.StorageBytes
	r.NetworkBytes += other.NetworkBytes
	r.IOOps += other.IOOps
	r.DBConnections += other.DBConnections
}

// StepExecutionResult records the outcome of one step within a run.
// It is created by the executor and immutable once stored in the execution's
// step map.
type StepExecutionResult struct {
	StepID      StepID          `json:"step_id"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
	Duration    time.Duration   `json:"duration"`
	Inputs      map[string]any  `json:"inputs,omitempty"`
	Outputs     map[string]any  `json:"outputs,omitempty"`
	Error       string          `json:"error,omitempty"`
	Logs        []LogEntry      `json:"logs,omitempty"`
	Metrics     StepMetrics     `json:"metrics"`
	Resources   ResourceUsage   `json:"resources"`
}

// Success reports whether the step completed without error.
func (r *StepExecutionResult) Success() bool {
	return r.Status == ExecutionStatusCompleted
}

// ExecutionMetrics aggregates run-level metrics.
type ExecutionMetrics struct {
	TotalDuration  time.Duration `json:"total_duration"`
	StepsTotal     int           `json:"steps_total"`
	StepsCompleted int           `json:"steps_completed"`
	StepsFailed    int           `json:"steps_failed"`
	RetriesTotal   int           `json:"retries_total"`
	BatchesRun     int           `json:"batches_run"`
}

// WorkflowExecution is the mutable record of one run of a definition.
// It is exclusively owned and mutated by the orchestrator driving the run;
// step handlers never write to it directly.
type WorkflowExecution struct {
	ID          ExecutionID                     `json:"id"`
	WorkflowID  WorkflowID                      `json:"workflow_id"`
	Status      ExecutionStatus                 `json:"status"`
	StartedAt   *time.Time                      `json:"started_at,omitempty"`
	CompletedAt *time.Time                      `json:"completed_at,omitempty"`
	UserID      string                          `json:"user_id"`
	WorkspaceID string                          `json:"workspace_id,omitempty"`
	Parameters  map[string]any                  `json:"parameters,omitempty"`
	Steps       map[StepID]*StepExecutionResult `json:"steps"`
	Logs        []LogEntry                      `json:"logs,omitempty"`
	Metrics     ExecutionMetrics                `json:"metrics"`
	Resources   ResourceUsage                   `json:"resources"`
	Error       string                          `json:"error,omitempty"`

	mu sync.Mutex
}

// NewExecution creates a pending execution record from a context.
func NewExecution(ec *ExecutionContext) *WorkflowExecution {
	return &WorkflowExecution{
		ID:          ec.ExecutionID,
		WorkflowID:  ec.WorkflowID,
		Status:      ExecutionStatusPending,
		UserID:      ec.UserID,
		WorkspaceID: ec.WorkspaceID,
		Parameters:  ec.Parameters,
		Steps:       make(map[StepID]*StepExecutionResult),
	}
}

// Start transitions the execution to running state.
func (e *WorkflowExecution) Start() error {
	if e.Status != ExecutionStatusPending {
		return ErrState(CodeInvalidState, fmt.Sprintf("cannot start execution in %s state", e.Status))
	}
	e.Status = ExecutionStatusRunning
	now := time.Now()
	e.StartedAt = &now
	return nil
}

// Complete transitions the execution to completed state.
func (e *WorkflowExecution) Complete() error {
	if e.Status != ExecutionStatusRunning {
		return ErrState(CodeInvalidState, fmt.Sprintf("cannot complete execution in %s state", e.Status))
	}
	e.Status = ExecutionStatusCompleted
	now := time.Now()
	e.CompletedAt = &now
	e.updateMetrics()
	return nil
}

// Fail transitions the execution to failed state. Unlike Complete it accepts
// any non-terminal prior state so the record is always left inspectable.
func (e *WorkflowExecution) Fail(err error) {
	if e.IsTerminal() {
		return
	}
	e.Status = ExecutionStatusFailed
	if err != nil {
		e.Error = err.Error()
	}
	now := time.Now()
	e.CompletedAt = &now
	e.updateMetrics()
}

// IsTerminal returns true if the execution reached a terminal state.
func (e *WorkflowExecution) IsTerminal() bool {
	return e.Status == ExecutionStatusCompleted || e.Status == ExecutionStatusFailed
}

// RecordStep stores a step result. Safe for use while concurrent batch
// goroutines report outcomes through the orchestrator.
func (e *WorkflowExecution) RecordStep(result *StepExecutionResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Steps[result.StepID] = result
	e.Resources.Add(result.Resources)
	e.Metrics.RetriesTotal += result.Metrics.RetryCount
}

// StepResult retrieves the result recorded for a step.
func (e *WorkflowExecution) StepResult(id StepID) (*StepExecutionResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.Steps[id]
	return r, ok
}

// AppendLog adds an entry to the execution-level log.
func (e *WorkflowExecution) AppendLog(level LogLevel, message string, metadata map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Logs = append(e.Logs, LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Metadata:  metadata,
	})
}

// Duration returns the run duration so far, or the final duration once the
// execution is terminal.
func (e *WorkflowExecution) Duration() time.Duration {
	if e.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if e.CompletedAt != nil {
		end = *e.CompletedAt
	}
	return end.Sub(*e.StartedAt)
}

func (e *WorkflowExecution) updateMetrics() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Metrics.StepsTotal = len(e.Steps)
	e.Metrics.StepsCompleted = 0
	e.Metrics.StepsFailed = 0
	for _, r := range e.Steps {
		switch r.Status {
		case ExecutionStatusCompleted:
			e.Metrics.StepsCompleted++
		case ExecutionStatusFailed:
			e.Metrics.StepsFailed++
		}
	}
	if e.StartedAt != nil && e.CompletedAt != nil {
		e.Metrics.TotalDuration = e.CompletedAt.Sub(*e.StartedAt)
	}
}
