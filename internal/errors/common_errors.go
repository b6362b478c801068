package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Common error codes
const (
	// Registration error codes
	CodeDuplicateTask  = "001"
	CodeEmptyTaskID    = "002"
	CodeUnknownTask    = "003"
	CodeSelfDependency = "004"
	CodeNilExecutor    = "005"

	// Graph error codes
	CodeCycleDetected     = "001"
	CodeMissingDependency = "002"

	// Lifecycle error codes
	CodeNotPending             = "001"
	CodeNotRunning             = "002"
	CodeDependenciesIncomplete = "003"

	// Execution error codes
	CodeCallbackFailed = "001"
	CodeCallbackPanic  = "002"

	// Configuration error codes
	CodeConfigValue = "001"
)

// NewDuplicateTaskError creates an error for re-registration of an existing id
func NewDuplicateTaskError(taskID string) *TaskError {
	return NewTaskError(ErrorCategoryDuplicate, CodeDuplicateTask,
		fmt.Sprintf("task '%s' is already registered", taskID),
		"register task").
		WithContext("task", taskID).
		WithTroubleshooting(
			"Choose a unique id for each task",
			"Ignore the error if the task was intentionally registered twice",
		)
}

// NewEmptyTaskIDError creates an error for a task registered without an id
func NewEmptyTaskIDError(operation string) *TaskError {
	return NewTaskError(ErrorCategoryInvalidTask, CodeEmptyTaskID,
		"task id cannot be empty", operation)
}

// NewNilExecutorError creates an error for a batch dispatched without a callback
func NewNilExecutorError() *TaskError {
	return NewTaskError(ErrorCategoryInvalidTask, CodeNilExecutor,
		"executor cannot be nil", "execute tasks")
}

// NewUnknownTaskError creates an error for an id that was never registered
func NewUnknownTaskError(taskID, operation string) *TaskError {
	return NewTaskError(ErrorCategoryUnknownTask, CodeUnknownTask,
		fmt.Sprintf("task '%s' is not registered", taskID),
		operation).
		WithContext("task", taskID)
}

// NewSelfDependencyError creates an error for a task that lists itself as a dependency
func NewSelfDependencyError(taskID string) *TaskError {
	return NewTaskError(ErrorCategoryCycle, CodeSelfDependency,
		fmt.Sprintf("task '%s' depends on itself", taskID),
		"register task").
		WithContext("task", taskID).
		WithContext("cycle", []string{taskID, taskID}).
		WithTroubleshooting("Remove the task's own id from its dependency list")
}

// NewCircularDependencyError creates an error for a dependency graph with a cycle.
// cycle is one concrete loop (first id repeated at the end); blocked lists every
// task that could not be ordered.
func NewCircularDependencyError(cycle, blocked []string) *TaskError {
	msg := "circular dependency detected in tasks"
	if len(cycle) > 0 {
		msg = fmt.Sprintf("circular dependency detected: %s", strings.Join(cycle, " -> "))
	}
	return NewTaskError(ErrorCategoryCycle, CodeCycleDetected, msg, "order tasks").
		WithContext("cycle", cycle).
		WithContext("blocked", blocked).
		WithTroubleshooting(
			"Break the loop by removing one of the dependencies on the reported path",
			"Tasks downstream of the loop are listed as blocked and will run once it is removed",
		)
}

// NewMissingDependencyError creates an error for dependencies that name unregistered ids.
// missing maps each dependent task to the unregistered ids it references.
func NewMissingDependencyError(missing map[string][]string) *TaskError {
	tasks := make([]string, 0, len(missing))
	for id := range missing {
		tasks = append(tasks, id)
	}
	sort.Strings(tasks)

	parts := make([]string, 0, len(tasks))
	for _, id := range tasks {
		parts = append(parts, fmt.Sprintf("%s -> [%s]", id, strings.Join(missing[id], ", ")))
	}

	return NewTaskError(ErrorCategoryMissingDependency, CodeMissingDependency,
		fmt.Sprintf("tasks depend on unregistered ids: %s", strings.Join(parts, "; ")),
		"order tasks").
		WithContext("missing", missing).
		WithTroubleshooting(
			"Register every dependency before requesting an execution order",
			"Check the dependency ids for typos",
		)
}

// NewInvalidTransitionError creates an error for an illegal lifecycle transition
func NewInvalidTransitionError(taskID, from, to, code, reason string) *TaskError {
	return NewTaskError(ErrorCategoryTransition, code,
		fmt.Sprintf("cannot move task '%s' from %s to %s: %s", taskID, from, to, reason),
		"transition task").
		WithContext("task", taskID).
		WithContext("from", from).
		WithContext("to", to)
}

// NewExecutionError wraps a failure returned by an execution callback
func NewExecutionError(taskID string, cause error) *TaskError {
	return NewTaskError(ErrorCategoryExecution, CodeCallbackFailed,
		fmt.Sprintf("task '%s' failed", taskID),
		"execute task").
		WithContext("task", taskID).
		WithOriginalError(cause)
}

// NewPanicError records a recovered panic from an execution callback
func NewPanicError(taskID string, recovered interface{}) *TaskError {
	return NewTaskError(ErrorCategoryExecution, CodeCallbackPanic,
		fmt.Sprintf("task '%s' panicked: %v", taskID, recovered),
		"execute task").
		WithContext("task", taskID).
		WithContext("panic", recovered)
}

// NewConfigurationError creates an error for an invalid configuration value
func NewConfigurationError(field string, value interface{}, reason string) *TaskError {
	return NewTaskError(ErrorCategoryConfiguration, CodeConfigValue,
		fmt.Sprintf("invalid value for %s: %v (%s)", field, value, reason),
		"configure scheduler").
		WithContext("field", field).
		WithContext("value", value)
}
