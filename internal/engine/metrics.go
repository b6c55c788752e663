package engine

import (
	"sync"
	"time"

	"github.com/seiforesti/govflow/internal/core"
)

// MetricsCollector aggregates metrics across workflow runs. One collector
// can observe many executions; per-type aggregates accumulate until Reset.
type MetricsCollector struct {
	run   RunMetrics
	steps map[core.StepID]*StepRecord
	types map[core.StepType]*TypeMetrics
	mu    sync.RWMutex
}

// RunMetrics holds run-level metrics.
type RunMetrics struct {
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	TotalDuration  time.Duration `json:"total_duration"`
	StepsTotal     int           `json:"steps_total"`
	StepsCompleted int           `json:"steps_completed"`
	StepsFailed    int           `json:"steps_failed"`
	RetriesTotal   int           `json:"retries_total"`
	BatchesRun     int           `json:"batches_run"`
}

// StepRecord holds per-step metrics for one run.
type StepRecord struct {
	StepID    core.StepID   `json:"step_id"`
	Type      core.StepType `json:"type"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Retries   int           `json:"retries"`
	Success   bool          `json:"success"`
	ErrorMsg  string        `json:"error,omitempty"`
}

// TypeMetrics holds aggregates per step type.
type TypeMetrics struct {
	Type          core.StepType `json:"type"`
	Invocations   int           `json:"invocations"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
	Errors        int           `json:"errors"`
	Retries       int           `json:"retries"`
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		steps: make(map[core.StepID]*StepRecord),
		types: make(map[core.StepType]*TypeMetrics),
	}
}

// StartRun marks the beginning of a workflow run.
func (m *MetricsCollector) StartRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.run.StartTime = time.Now()
}

// EndRun marks the end of a workflow run.
func (m *MetricsCollector) EndRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.run.EndTime = time.Now()
	m.run.TotalDuration = m.run.EndTime.Sub(m.run.StartTime)
}

// RecordBatch records a completed batch.
func (m *MetricsCollector) RecordBatch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.run.BatchesRun++
}

// RecordStep records a settled step result.
func (m *MetricsCollector) RecordStep(stepType core.StepType, result *core.StepExecutionResult) {
	if result == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := &StepRecord{
		StepID:    result.StepID,
		Type:      stepType,
		StartTime: result.StartedAt,
		EndTime:   result.CompletedAt,
		Duration:  result.Duration,
		Retries:   result.Metrics.RetryCount,
		Success:   result.Success(),
		ErrorMsg:  result.Error,
	}
	m.steps[result.StepID] = rec

	m.run.StepsTotal++
	m.run.RetriesTotal += rec.Retries
	if rec.Success {
		m.run.StepsCompleted++
	} else {
		m.run.StepsFailed++
	}

	tm, ok := m.types[stepType]
	if !ok {
		tm = &TypeMetrics{Type: stepType}
		m.types[stepType] = tm
	}
	tm.Invocations++
	tm.TotalDuration += rec.Duration
	tm.AvgDuration = tm.TotalDuration / time.Duration(tm.Invocations)
	tm.Retries += rec.Retries
	if !rec.Success {
		tm.Errors++
	}
}

// RunMetrics returns run-level metrics.
func (m *MetricsCollector) RunMetrics() RunMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.run
}

// StepMetrics returns the record for one step.
func (m *MetricsCollector) StepMetrics(id core.StepID) (*StepRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.steps[id]
	if !ok {
		return nil, false
	}
	recCopy := *rec
	return &recCopy, true
}

// AllStepMetrics returns records for every observed step.
func (m *MetricsCollector) AllStepMetrics() []*StepRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*StepRecord, 0, len(m.steps))
	for _, rec := range m.steps {
		recCopy := *rec
		result = append(result, &recCopy)
	}
	return result
}

// TypeAggregates returns the per-type aggregates.
func (m *MetricsCollector) TypeAggregates() map[core.StepType]*TypeMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[core.StepType]*TypeMetrics, len(m.types))
	for k, v := range m.types {
		typeCopy := *v
		result[k] = &typeCopy
	}
	return result
}

// Reset clears all metrics.
func (m *MetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.run = RunMetrics{}
	m.steps = make(map[core.StepID]*StepRecord)
	m.types = make(map[core.StepType]*TypeMetrics)
}
