package progress

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReport(t *testing.T) {
	r := NewReporter()

	line := r.Report(Info{
		Batch:        2,
		Total:        10,
		Completed:    4,
		Failed:       1,
		Running:      2,
		Ready:        1,
		Elapsed:      50 * time.Second,
		RunningTasks: []string{"build", "lint"},
	})

	assert.True(t, strings.HasPrefix(line, "Progress: 5/10 tasks finished (50.0%)"))
	assert.Contains(t, line, "Batch: 2")
	assert.Contains(t, line, "Elapsed: 50s")
	assert.Contains(t, line, "ETA: 50s")
	assert.Contains(t, line, "1 failed")
	assert.Contains(t, line, "2 running (build, lint)")
	assert.Contains(t, line, "1 ready")
	assert.Contains(t, line, "2 waiting")
}

func TestReportEmpty(t *testing.T) {
	line := NewReporter().Report(Info{})

	assert.Equal(t, "Progress: 0/0 tasks finished (0.0%) | Elapsed: 0ms", line)
}

func TestShouldReport(t *testing.T) {
	r := NewReporter().WithInterval(time.Hour)
	assert.False(t, r.ShouldReport())

	r = NewReporter().WithInterval(0)
	assert.True(t, r.ShouldReport())
}

func TestReportMessages(t *testing.T) {
	r := NewReporter()

	assert.Equal(t, "Starting batch 1: a, b", r.ReportBatchStart(1, []string{"a", "b"}))
	assert.Equal(t, "Batch 3 COMPLETED in 1.5s", r.ReportBatchComplete(3, 1500*time.Millisecond, 0))
	assert.Equal(t, "Batch 3 FINISHED with 2 failed in 10ms", r.ReportBatchComplete(3, 10*time.Millisecond, 2))
	assert.Equal(t, "  FAILED deploy (took 2s)", r.ReportTaskComplete("deploy", 2*time.Second, false))
	assert.Equal(t, "ERROR during run: boom", r.ReportError("run", errors.New("boom")))
}

func TestCalculateETA(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		total     int
		elapsed   time.Duration
		expected  time.Duration
	}{
		{"nothing done", 0, 10, time.Minute, 0},
		{"all done", 10, 10, time.Minute, 0},
		{"no tasks", 0, 0, time.Minute, 0},
		{"half done", 5, 10, time.Minute, time.Minute},
		{"quarter done", 1, 4, 10 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculateETA(tt.completed, tt.total, tt.elapsed))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{250 * time.Millisecond, "250ms"},
		{42 * time.Second, "42s"},
		{3*time.Minute + 7*time.Second, "3m 7s"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDuration(tt.d))
		})
	}
}
