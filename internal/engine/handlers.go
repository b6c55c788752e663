package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/seiforesti/govflow/internal/core"
)

// StepHandler performs the work of one step type. Handlers receive the step,
// its prepared input map and the read-only execution context, and report
// progress through the log sink. They must not touch shared execution state;
// the orchestrator alone writes results into the execution record.
type StepHandler func(ctx context.Context, step *core.WorkflowStep, inputs map[string]any, ec *core.ExecutionContext, log *StepLogger) (map[string]any, error)

// ConfigValidator checks a step's type-specific configuration payload.
type ConfigValidator func(step *core.WorkflowStep) error

// StepLogger collects ordered log entries for a single step execution.
type StepLogger struct {
	mu      sync.Mutex
	entries []core.LogEntry
}

// NewStepLogger creates an empty step log sink.
func NewStepLogger() *StepLogger {
	return &StepLogger{}
}

// Log appends an entry.
func (l *StepLogger) Log(level core.LogLevel, message string, metadata map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, core.LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Metadata:  metadata,
	})
}

// Infof appends a formatted info entry.
func (l *StepLogger) Infof(format string, args ...any) {
	l.Log(core.LogLevelInfo, fmt.Sprintf(format, args...), nil)
}

// Errorf appends a formatted error entry.
func (l *StepLogger) Errorf(format string, args ...any) {
	l.Log(core.LogLevelError, fmt.Sprintf(format, args...), nil)
}

// Entries returns the collected entries.
func (l *StepLogger) Entries() []core.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// HandlerRegistry maps each step type to its handler and optional config
// validator. The registry is populated at startup; dispatch over the closed
// StepType enum stays exhaustive because every type carries at least the
// not-implemented default.
type HandlerRegistry struct {
	mu         sync.RWMutex
	handlers   map[core.StepType]StepHandler
	validators map[core.StepType]ConfigValidator
}

// NewHandlerRegistry creates a registry where every known step type resolves
// to an explicit not-implemented handler. The result is distinguishable from
// a genuine step failure by its STEP_NOT_IMPLEMENTED code.
func NewHandlerRegistry() *HandlerRegistry {
	r := &HandlerRegistry{
		handlers:   make(map[core.StepType]StepHandler),
		validators: make(map[core.StepType]ConfigValidator),
	}
	for _, t := range core.StepTypes() {
		r.handlers[t] = notImplementedHandler(t)
	}
	return r
}

// Register installs the handler for a step type, replacing the default.
func (r *HandlerRegistry) Register(t core.StepType, h StepHandler) error {
	if !t.IsValid() {
		return core.ErrValidation(core.CodeUnknownStepType, fmt.Sprintf("cannot register handler for unknown step type %q", t))
	}
	if h == nil {
		return fmt.Errorf("handler for %s cannot be nil", t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
	return nil
}

// RegisterValidator installs a config validator for a step type.
func (r *HandlerRegistry) RegisterValidator(t core.StepType, v ConfigValidator) error {
	if !t.IsValid() {
		return core.ErrValidation(core.CodeUnknownStepType, fmt.Sprintf("cannot register validator for unknown step type %q", t))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[t] = v
	return nil
}

// Handler resolves the handler for a step type. Unknown types return an
// error: a mistyped step is a per-step fatal error, never a process crash.
func (r *HandlerRegistry) Handler(t core.StepType) (StepHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	if !ok {
		return nil, core.ErrValidation(core.CodeUnknownStepType, fmt.Sprintf("no handler for step type %q", t))
	}
	return h, nil
}

// ValidateConfig runs the type-specific config validator, if any.
func (r *HandlerRegistry) ValidateConfig(step *core.WorkflowStep) error {
	r.mu.RLock()
	v := r.validators[step.Type]
	r.mu.RUnlock()
	if v == nil {
		return nil
	}
	return v(step)
}

// notImplementedHandler returns the default placeholder for a step type.
func notImplementedHandler(t core.StepType) StepHandler {
	return func(_ context.Context, step *core.WorkflowStep, _ map[string]any, _ *core.ExecutionContext, log *StepLogger) (map[string]any, error) {
		log.Log(core.LogLevelWarn, fmt.Sprintf("no handler registered for step type %s", t), nil)
		return nil, &core.DomainError{
			Category:  core.ErrCatExecution,
			Code:      core.CodeStepNotImplemented,
			Message:   fmt.Sprintf("step type %s has no registered handler", t),
			Retryable: false,
			Details:   map[string]interface{}{"step_id": string(step.ID)},
		}
	}
}
