package output

import (
	"fmt"
	"strings"

	schederrors "github.com/maxkimambo/depsched/internal/errors"
	"github.com/maxkimambo/depsched/internal/progress"
	"github.com/maxkimambo/depsched/internal/scheduler"
	"github.com/maxkimambo/depsched/internal/workflow"
)

// maxErrorWidth truncates the error column of the summary table
const maxErrorWidth = 60

// TaskTable lists every task of a run in execution order
func TaskTable(report *workflow.Report) *Table {
	blocked := make(map[string]bool, len(report.Blocked))
	for _, id := range report.Blocked {
		blocked[id] = true
	}

	table := NewTable("TASK", "STATE", "DURATION", "ERROR")
	for _, id := range report.Order {
		outcome, ran := report.Outcomes[id]
		switch {
		case !ran && blocked[id]:
			table.AddRow(id, "blocked", "-", "")
		case !ran:
			table.AddRow(id, scheduler.StatePending.String(), "-", "")
		case outcome.Err != nil:
			table.AddRow(id, outcome.State.String(), progress.FormatDuration(outcome.Duration),
				truncate(schederrors.DisplayErrorSummary(outcome.Err), maxErrorWidth))
		default:
			table.AddRow(id, outcome.State.String(), progress.FormatDuration(outcome.Duration), "")
		}
	}
	return table
}

// ResultBox summarises a run in a single framed message
func ResultBox(report *workflow.Report) *Box {
	if report.Success() {
		return NewBox(KindSuccess, fmt.Sprintf("Workflow %s completed", report.WorkflowID)).
			AddLine(fmt.Sprintf("%d tasks in %d batches, %s",
				report.Stats.TasksCompleted, report.Batches, progress.FormatDuration(report.Duration))).
			AddLine("Run ID: " + report.RunID)
	}

	box := NewBox(KindError, fmt.Sprintf("Workflow %s did not complete", report.WorkflowID)).
		AddLine(fmt.Sprintf("%d completed, %d failed, %d blocked, %d not started after %s",
			report.Stats.TasksCompleted, len(report.Failed), len(report.Blocked), len(report.Pending),
			progress.FormatDuration(report.Duration)))
	for _, id := range report.Failed {
		box.AddBullet("failed: " + id)
	}
	if len(report.Blocked) > 0 {
		box.AddBullet("blocked: " + strings.Join(report.Blocked, ", "))
	}
	if len(report.Pending) > 0 {
		box.AddBullet("not started: " + strings.Join(report.Pending, ", "))
	}
	return box.AddLine("Run ID: " + report.RunID)
}

// Summary renders the task table followed by the result box
func Summary(report *workflow.Report) string {
	return TaskTable(report).String() + "\n" + ResultBox(report).Render() + "\n"
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
