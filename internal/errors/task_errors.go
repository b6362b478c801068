package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents the category of error
type ErrorCategory string

const (
	// ErrorCategoryDuplicate represents re-registration of an existing task id
	ErrorCategoryDuplicate ErrorCategory = "DUPLICATE"
	// ErrorCategoryCycle represents a dependency graph that is not acyclic
	ErrorCategoryCycle ErrorCategory = "CYCLE"
	// ErrorCategoryTransition represents an illegal lifecycle transition
	ErrorCategoryTransition ErrorCategory = "TRANSITION"
	// ErrorCategoryExecution represents a failure returned by an execution callback
	ErrorCategoryExecution ErrorCategory = "EXECUTION"
	// ErrorCategoryUnknownTask represents a lookup of an id that was never registered
	ErrorCategoryUnknownTask ErrorCategory = "UNKNOWN_TASK"
	// ErrorCategoryMissingDependency represents a dependency on an unregistered id
	ErrorCategoryMissingDependency ErrorCategory = "MISSING_DEPENDENCY"
	// ErrorCategoryInvalidTask represents malformed task input
	ErrorCategoryInvalidTask ErrorCategory = "INVALID_TASK"
	// ErrorCategoryConfiguration represents configuration errors
	ErrorCategoryConfiguration ErrorCategory = "CONFIGURATION"
)

// Sentinels for errors.Is. Every TaskError matches the sentinel of its category.
// They are match-only values: build returned errors with NewTaskError or the
// constructors in common_errors.go, never by decorating a sentinel.
var (
	ErrDuplicateTask        = &TaskError{Category: ErrorCategoryDuplicate, Message: "duplicate task"}
	ErrCircularDependency   = &TaskError{Category: ErrorCategoryCycle, Message: "circular dependency"}
	ErrInvalidTransition    = &TaskError{Category: ErrorCategoryTransition, Message: "invalid transition"}
	ErrExecution            = &TaskError{Category: ErrorCategoryExecution, Message: "execution failed"}
	ErrUnknownTask          = &TaskError{Category: ErrorCategoryUnknownTask, Message: "unknown task"}
	ErrMissingDependency    = &TaskError{Category: ErrorCategoryMissingDependency, Message: "missing dependency"}
	ErrInvalidTask          = &TaskError{Category: ErrorCategoryInvalidTask, Message: "invalid task"}
	ErrInvalidConfiguration = &TaskError{Category: ErrorCategoryConfiguration, Message: "invalid configuration"}
)

// TaskError represents a structured error with context and troubleshooting information
type TaskError struct {
	Category        ErrorCategory
	Code            string
	Message         string
	Operation       string
	Context         map[string]interface{}
	Troubleshooting []string
	OriginalError   error
}

// Error implements the error interface
func (e *TaskError) Error() string {
	var sb strings.Builder

	if e.Code != "" {
		sb.WriteString(fmt.Sprintf("%s-%s: %s", e.Category, e.Code, e.Message))
	} else {
		sb.WriteString(fmt.Sprintf("%s: %s", e.Category, e.Message))
	}

	if e.Operation != "" {
		sb.WriteString(fmt.Sprintf(" (operation: %s)", e.Operation))
	}

	if e.OriginalError != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.OriginalError))
	}

	return sb.String()
}

// Detailed renders the error with its context and troubleshooting steps
func (e *TaskError) Detailed() string {
	var sb strings.Builder
	sb.WriteString(e.Error())

	if len(e.Context) > 0 {
		sb.WriteString("\nContext:")
		for _, key := range e.contextKeys() {
			sb.WriteString(fmt.Sprintf("\n  %s: %v", key, e.Context[key]))
		}
	}

	if len(e.Troubleshooting) > 0 {
		sb.WriteString("\nTroubleshooting:")
		for i, step := range e.Troubleshooting {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
		}
	}

	return sb.String()
}

// contextKeys returns context keys in a stable order
func (e *TaskError) contextKeys() []string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Unwrap returns the original error for error chain compatibility
func (e *TaskError) Unwrap() error {
	return e.OriginalError
}

// Is reports whether target is a TaskError of the same category.
// Sentinels carry no code, so matching is by category only.
func (e *TaskError) Is(target error) bool {
	t, ok := target.(*TaskError)
	if !ok {
		return false
	}
	return t.Category == e.Category
}

// NewTaskError creates a new task error with the specified parameters
func NewTaskError(category ErrorCategory, code, message, operation string) *TaskError {
	return &TaskError{
		Category:        category,
		Code:            code,
		Message:         message,
		Operation:       operation,
		Context:         make(map[string]interface{}),
		Troubleshooting: []string{},
	}
}

// WithContext adds context information to the error
func (e *TaskError) WithContext(key string, value interface{}) *TaskError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithTroubleshooting adds troubleshooting steps to the error
func (e *TaskError) WithTroubleshooting(steps ...string) *TaskError {
	e.Troubleshooting = append(e.Troubleshooting, steps...)
	return e
}

// WithOriginalError adds the original error to the task error
func (e *TaskError) WithOriginalError(err error) *TaskError {
	e.OriginalError = err
	return e
}

// TaskID returns the "task" context value, if any
func (e *TaskError) TaskID() string {
	if id, ok := e.Context["task"].(string); ok {
		return id
	}
	return ""
}
