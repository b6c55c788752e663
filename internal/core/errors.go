package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid definition or input
	ErrCatExecution  ErrorCategory = "execution"  // Runtime step failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Operation timed out
	ErrCatState      ErrorCategory = "state"      // State corruption/conflict
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the engine.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// Predefined error codes.
const (
	CodeEmptyName          = "EMPTY_NAME"
	CodeNoSteps            = "NO_STEPS"
	CodeDuplicateStepID    = "DUPLICATE_STEP_ID"
	CodeMissingDependency  = "MISSING_DEPENDENCY"
	CodeCircularDependency = "CIRCULAR_DEPENDENCY"
	CodeUnknownStepType    = "UNKNOWN_STEP_TYPE"
	CodeInvalidStepConfig  = "INVALID_STEP_CONFIG"
	CodeValidationFailure  = "VALIDATION_FAILURE"
	CodeStepIDRequired     = "STEP_ID_REQUIRED"
	CodeStepNameRequired   = "STEP_NAME_REQUIRED"
	CodeStepNotImplemented = "STEP_NOT_IMPLEMENTED"
	CodeStepFailed         = "STEP_FAILED"
	CodeCriticalStepFailed = "CRITICAL_STEP_FAILED"
	CodeInvalidState       = "INVALID_STATE"
	CodeExecutionStuck     = "EXECUTION_STUCK"
)

// ValidationError is returned when a definition fails validation before
// execution begins. It carries the full structured error list, never a single
// opaque message.
type ValidationError struct {
	WorkflowID WorkflowID
	Errors     []ValidationIssue
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	codes := make([]string, 0, len(e.Errors))
	for _, issue := range e.Errors {
		codes = append(codes, issue.Code)
	}
	return fmt.Sprintf("workflow %s failed validation: %s", e.WorkflowID, strings.Join(codes, ", "))
}

// ExecutionError is returned when a critical-path step fails during a run.
// It carries the execution ID so the caller can retrieve the partial (failed)
// execution record for diagnostics.
type ExecutionError struct {
	ExecutionID ExecutionID
	StepID      StepID
	Cause       error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution %s aborted: critical step %s failed: %v", e.ExecutionID, e.StepID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// OptimizationError is returned when optimization analysis itself fails.
// An optimization run that finds nothing to improve is a successful empty
// result, not an OptimizationError.
type OptimizationError struct {
	WorkflowID WorkflowID
	Cause      error
}

// Error implements the error interface.
func (e *OptimizationError) Error() string {
	return fmt.Sprintf("optimization of workflow %s failed: %v", e.WorkflowID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *OptimizationError) Unwrap() error {
	return e.Cause
}
