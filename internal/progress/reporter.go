package progress

import (
	"fmt"
	"strings"
	"time"
)

// Info contains progress information for a scheduler run
type Info struct {
	RunID     string
	Batch     int
	Total     int
	Completed int
	Failed    int
	Running   int
	Ready     int
	Elapsed   time.Duration
	// ETA is derived from Elapsed when left zero
	ETA          time.Duration
	RunningTasks []string
}

// Pending returns tasks that have not finished
func (i Info) Pending() int {
	return i.Total - i.Completed - i.Failed
}

// Percentage returns the finished share of tasks in percent
func (i Info) Percentage() float64 {
	if i.Total == 0 {
		return 0
	}
	return float64(i.Completed+i.Failed) / float64(i.Total) * 100
}

// Reporter handles progress reporting
type Reporter struct {
	startTime      time.Time
	lastReportTime time.Time
	reportInterval time.Duration
}

// NewReporter creates a new progress reporter
func NewReporter() *Reporter {
	return &Reporter{
		startTime:      time.Now(),
		lastReportTime: time.Now(),
		reportInterval: 5 * time.Second,
	}
}

// WithInterval sets the minimum time between periodic reports
func (r *Reporter) WithInterval(d time.Duration) *Reporter {
	r.reportInterval = d
	return r
}

// Elapsed returns time since the reporter was created
func (r *Reporter) Elapsed() time.Duration {
	return time.Since(r.startTime)
}

// ShouldReport returns true if it's time to report progress
func (r *Reporter) ShouldReport() bool {
	return time.Since(r.lastReportTime) >= r.reportInterval
}

// Report generates a formatted progress line
func (r *Reporter) Report(info Info) string {
	r.lastReportTime = time.Now()

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Progress: %d/%d tasks finished (%.1f%%)",
		info.Completed+info.Failed, info.Total, info.Percentage()))

	if info.Batch > 0 {
		sb.WriteString(fmt.Sprintf(" | Batch: %d", info.Batch))
	}

	sb.WriteString(fmt.Sprintf(" | Elapsed: %s", FormatDuration(info.Elapsed)))

	eta := info.ETA
	if eta == 0 {
		eta = CalculateETA(info.Completed+info.Failed, info.Total, info.Elapsed)
	}
	if eta > 0 {
		sb.WriteString(fmt.Sprintf(" | ETA: %s", FormatDuration(eta)))
	}

	var parts []string
	if info.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", info.Failed))
	}
	if info.Running > 0 {
		running := fmt.Sprintf("%d running", info.Running)
		if len(info.RunningTasks) > 0 {
			running += fmt.Sprintf(" (%s)", strings.Join(info.RunningTasks, ", "))
		}
		parts = append(parts, running)
	}
	if info.Ready > 0 {
		parts = append(parts, fmt.Sprintf("%d ready", info.Ready))
	}
	if blocked := info.Pending() - info.Running - info.Ready; blocked > 0 {
		parts = append(parts, fmt.Sprintf("%d waiting", blocked))
	}
	if len(parts) > 0 {
		sb.WriteString("\n   Tasks: " + strings.Join(parts, ", "))
	}

	return sb.String()
}

// ReportBatchStart reports a batch being dispatched
func (r *Reporter) ReportBatchStart(batch int, ids []string) string {
	return fmt.Sprintf("Starting batch %d: %s", batch, strings.Join(ids, ", "))
}

// ReportBatchComplete reports the end of a batch
func (r *Reporter) ReportBatchComplete(batch int, duration time.Duration, failed int) string {
	status := "COMPLETED"
	if failed > 0 {
		status = fmt.Sprintf("FINISHED with %d failed", failed)
	}
	return fmt.Sprintf("Batch %d %s in %v", batch, status, duration.Round(time.Millisecond))
}

// ReportTaskComplete reports task completion
func (r *Reporter) ReportTaskComplete(taskID string, duration time.Duration, success bool) string {
	status := "COMPLETED"
	if !success {
		status = "FAILED"
	}
	return fmt.Sprintf("  %s %s (took %v)", status, taskID, duration.Round(time.Millisecond))
}

// ReportError formats an error for display
func (r *Reporter) ReportError(operation string, err error) string {
	return fmt.Sprintf("ERROR during %s: %v", operation, err)
}

// CalculateETA estimates time remaining based on current progress
func CalculateETA(completed, total int, elapsed time.Duration) time.Duration {
	if completed <= 0 || total <= 0 || completed >= total {
		return 0
	}

	averageTimePerTask := elapsed / time.Duration(completed)
	remainingTasks := total - completed
	return averageTimePerTask * time.Duration(remainingTasks)
}

// FormatDuration formats a duration in a user-friendly way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
