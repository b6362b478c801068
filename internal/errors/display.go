package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// DisplayErrorSummary provides a one-line summary of the error for tables and
// logs. The operation and context of a TaskError are left out.
func DisplayErrorSummary(err error) string {
	var summary string

	var taskErr *TaskError
	if stderrors.As(err, &taskErr) {
		if taskErr.Code == "" {
			summary = fmt.Sprintf("%s: %s", taskErr.Category, taskErr.Message)
		} else {
			summary = fmt.Sprintf("%s-%s: %s", taskErr.Category, taskErr.Code, taskErr.Message)
		}
		if taskErr.OriginalError != nil {
			summary += ": " + taskErr.OriginalError.Error()
		}
	} else {
		summary = err.Error()
	}

	if runes := []rune(summary); len(runes) > 100 {
		return string(runes[:97]) + "..."
	}
	return summary
}

// FormatForCLI formats an error for command-line display with proper spacing
func FormatForCLI(err error) string {
	var taskErr *TaskError
	if !stderrors.As(err, &taskErr) {
		return fmt.Sprintf("\nError: %v\n", err)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("\nScheduler Error [%s-%s]\n", taskErr.Category, taskErr.Code))
	sb.WriteString(fmt.Sprintf("  %s\n", taskErr.Message))

	if taskErr.Operation != "" {
		sb.WriteString(fmt.Sprintf("\nFailed Operation: %s\n", taskErr.Operation))
	}

	if len(taskErr.Context) > 0 {
		sb.WriteString("\nDetails:\n")
		for _, key := range taskErr.contextKeys() {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", key, taskErr.Context[key]))
		}
	}

	if len(taskErr.Troubleshooting) > 0 {
		sb.WriteString("\nHow to resolve:\n")
		for i, step := range taskErr.Troubleshooting {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, step))
		}
	}

	if taskErr.OriginalError != nil {
		sb.WriteString(fmt.Sprintf("\nTechnical details: %v\n", taskErr.OriginalError))
	}

	return sb.String()
}
