package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seiforesti/govflow/internal/core"
	"github.com/seiforesti/govflow/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Executor orchestrates workflow runs: it validates the definition, builds
// the execution plan, then walks the plan batch by batch. Batches run
// sequentially; steps within a batch run concurrently and every step's
// outcome is awaited before the batch is considered complete, so a failing
// step never cancels its siblings.
type Executor struct {
	registry  *HandlerRegistry
	planner   *Planner
	validator *Validator
	sampler   ResourceSampler
	collector *MetricsCollector
	logger    *logging.Logger
}

// NewExecutor creates an executor around a handler registry.
func NewExecutor(registry *HandlerRegistry, logger *logging.Logger) *Executor {
	if registry == nil {
		registry = NewHandlerRegistry()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	planner := NewPlanner()
	return &Executor{
		registry:  registry,
		planner:   planner,
		validator: NewValidator(planner).WithRegistry(registry),
		sampler:   NewProcessSampler(),
		collector: NewMetricsCollector(),
		logger:    logger,
	}
}

// Collector exposes the executor's metrics collector.
func (e *Executor) Collector() *MetricsCollector {
	return e.collector
}

// WithPlanner replaces the planner (and the validator derived from it).
func (e *Executor) WithPlanner(p *Planner) *Executor {
	e.planner = p
	e.validator = NewValidator(p).WithRegistry(e.registry)
	return e
}

// WithSampler replaces the resource sampler.
func (e *Executor) WithSampler(s ResourceSampler) *Executor {
	e.sampler = s
	return e
}

// Execute runs one workflow. The returned execution record is always in a
// terminal state, success or failure, even when an error is returned: a
// failed validation yields a ValidationError, a failed critical-path step a
// ExecutionError, and in both cases the record carries the partial results
// accumulated so far.
func (e *Executor) Execute(ctx context.Context, def *core.WorkflowDefinition, ec *core.ExecutionContext) (*core.WorkflowExecution, error) {
	if ec == nil {
		ec = core.NewExecutionContext(def.ID, "")
	}
	exec := core.NewExecution(ec)
	log := e.logger.WithWorkflow(string(def.ID)).WithExecution(string(ec.ExecutionID))

	report := e.validator.Validate(def)
	if !report.Valid {
		err := &core.ValidationError{WorkflowID: def.ID, Errors: report.Errors}
		log.Error("workflow failed validation", "errors", len(report.Errors))
		exec.AppendLog(core.LogLevelError, err.Error(), nil)
		exec.Fail(err)
		return exec, err
	}

	plan, err := e.planner.BuildPlan(def)
	if err != nil {
		exec.Fail(err)
		return exec, err
	}

	if err := exec.Start(); err != nil {
		return exec, err
	}
	e.collector.StartRun()
	defer e.collector.EndRun()

	if ec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ec.Timeout)
		defer cancel()
	}

	log.Info("starting workflow execution",
		"steps", plan.TotalSteps,
		"batches", len(plan.Batches),
		"estimated_duration", plan.EstimatedDuration,
	)
	exec.AppendLog(core.LogLevelInfo, fmt.Sprintf("execution started: %d steps in %d batches", plan.TotalSteps, len(plan.Batches)), nil)

	critical := plan.CriticalSet()
	retrier := NewRetrier(ec.Retry)

	for _, batch := range plan.Batches {
		if err := ctx.Err(); err != nil {
			return e.abort(exec, log, e.runError(err))
		}

		log.Info("executing batch", "batch", batch.ID, "steps", len(batch.StepIDs))

		var g errgroup.Group
		if limit := ec.Environment.Constraints.MaxParallelSteps; limit > 0 {
			g.SetLimit(limit)
		}
		for _, id := range batch.StepIDs {
			step, ok := def.Step(id)
			if !ok {
				// Plan and definition disagree; cannot happen after validation.
				return e.abort(exec, log, core.ErrState(core.CodeInvalidState, fmt.Sprintf("planned step %s not in definition", id)))
			}
			g.Go(func() error {
				result := e.executeStep(ctx, step, ec, exec, retrier)
				exec.RecordStep(result)
				e.collector.RecordStep(step.Type, result)
				return nil
			})
		}
		// Goroutines never return errors: the batch settles only once every
		// step has a terminal outcome.
		_ = g.Wait()
		exec.Metrics.BatchesRun++
		e.collector.RecordBatch()

		// Escalate critical-path failures only after the batch settles, so
		// sibling outcomes are always captured first.
		for _, id := range batch.StepIDs {
			result, ok := exec.StepResult(id)
			if !ok || result.Success() {
				continue
			}
			exec.AppendLog(core.LogLevelError, fmt.Sprintf("step %s failed: %s", id, result.Error), nil)
			if critical[id] {
				err := &core.ExecutionError{
					ExecutionID: exec.ID,
					StepID:      id,
					Cause:       errors.New(result.Error),
				}
				log.Error("critical step failed, aborting execution", "step_id", id, "error", result.Error)
				return e.abort(exec, log, err)
			}
			log.Warn("non-critical step failed, continuing", "step_id", id, "error", result.Error)
		}
	}

	if err := exec.Complete(); err != nil {
		return exec, err
	}
	log.Info("workflow execution completed",
		"duration", exec.Duration(),
		"steps_completed", exec.Metrics.StepsCompleted,
		"steps_failed", exec.Metrics.StepsFailed,
	)
	exec.AppendLog(core.LogLevelInfo, "execution completed", nil)
	return exec, nil
}

// abort finalizes the execution as failed and returns the error. The record
// is always left terminal and inspectable.
func (e *Executor) abort(exec *core.WorkflowExecution, log *logging.Logger, err error) (*core.WorkflowExecution, error) {
	exec.AppendLog(core.LogLevelError, err.Error(), nil)
	exec.Fail(err)
	log.Error("workflow execution failed", "error", err)
	return exec, err
}

// runError maps context errors onto the engine's taxonomy.
func (e *Executor) runError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrTimeout("execution timeout exceeded").WithCause(err)
	}
	return err
}

// executeStep dispatches one step to its handler, wrapped in the run's retry
// policy, and assembles its immutable result.
func (e *Executor) executeStep(ctx context.Context, step *core.WorkflowStep, ec *core.ExecutionContext, exec *core.WorkflowExecution, retrier *Retrier) *core.StepExecutionResult {
	started := time.Now()
	result := &core.StepExecutionResult{
		StepID:    step.ID,
		Status:    core.ExecutionStatusRunning,
		StartedAt: started,
		Inputs:    e.prepareInputs(step, ec, exec),
	}
	if exec.StartedAt != nil {
		result.Metrics.WaitTime = started.Sub(*exec.StartedAt)
	}

	stepLog := NewStepLogger()
	log := e.logger.WithExecution(string(exec.ID)).WithStep(string(step.ID))
	log.Info("step started", "type", step.Type, "name", step.Name)
	stepLog.Infof("step %s started", step.ID)

	var outputs map[string]any
	err := func() (stepErr error) {
		defer func() {
			if r := recover(); r != nil {
				stepErr = core.ErrExecution(core.CodeStepFailed, fmt.Sprintf("step handler panicked: %v", r))
			}
		}()
		handler, herr := e.registry.Handler(step.Type)
		if herr != nil {
			return herr
		}
		return retrier.ExecuteWithNotify(ctx, func(ctx context.Context) error {
			var execErr error
			outputs, execErr = handler(ctx, step, result.Inputs, ec, stepLog)
			return execErr
		}, func(attempt int, retryErr error, delay time.Duration) {
			result.Metrics.RetryCount = attempt
			log.Warn("step retry", "attempt", attempt, "delay", delay, "error", retryErr)
			stepLog.Log(core.LogLevelWarn, fmt.Sprintf("retry attempt %d after error: %v", attempt, retryErr), nil)
		})
	}()

	completed := time.Now()
	result.CompletedAt = completed
	result.Duration = completed.Sub(started)
	result.Metrics.ExecutionTime = result.Duration
	result.Resources = e.sampler.Sample()

	if err != nil {
		result.Status = core.ExecutionStatusFailed
		result.Error = err.Error()
		result.Metrics.ErrorRate = 1
		stepLog.Errorf("step %s failed: %v", step.ID, err)
		log.Error("step failed", "error", err, "duration", result.Duration, "retries", result.Metrics.RetryCount)
	} else {
		result.Status = core.ExecutionStatusCompleted
		result.Outputs = outputs
		if attempts := result.Metrics.RetryCount + 1; attempts > 1 {
			result.Metrics.ErrorRate = float64(result.Metrics.RetryCount) / float64(attempts)
		}
		stepLog.Infof("step %s completed", step.ID)
		log.Info("step completed", "duration", result.Duration, "retries", result.Metrics.RetryCount)
	}

	result.Logs = stepLog.Entries()
	return result
}

// prepareInputs assembles a step's input map: the run parameters plus each
// completed dependency's outputs keyed by the dependency's step ID.
func (e *Executor) prepareInputs(step *core.WorkflowStep, ec *core.ExecutionContext, exec *core.WorkflowExecution) map[string]any {
	inputs := make(map[string]any, len(ec.Parameters)+len(step.DependsOn))
	for k, v := range ec.Parameters {
		inputs[k] = v
	}
	for _, dep := range step.DependsOn {
		if depResult, ok := exec.StepResult(dep); ok && depResult.Success() && depResult.Outputs != nil {
			inputs[string(dep)] = depResult.Outputs
		}
	}
	return inputs
}
