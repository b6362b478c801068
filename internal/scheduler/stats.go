package scheduler

import "time"

// Stats is a point-in-time snapshot of scheduler counters.
// TasksCompleted + TasksPending + TasksFailed always equals TasksScheduled;
// TasksReady and TasksRunning are subsets of TasksPending.
type Stats struct {
	TasksScheduled int `json:"tasks_scheduled"`
	TasksCompleted int `json:"tasks_completed"`
	TasksPending   int `json:"tasks_pending"`
	TasksFailed    int `json:"tasks_failed"`

	TasksReady   int `json:"tasks_ready"`
	TasksRunning int `json:"tasks_running"`

	// TotalExecutionTime sums the wall clock of every ExecuteConcurrent batch
	TotalExecutionTime time.Duration `json:"total_execution_time"`
}

// Finished reports whether no task is left pending
func (st Stats) Finished() bool {
	return st.TasksPending == 0
}

// Progress returns the share of finished tasks in [0, 1]
func (st Stats) Progress() float64 {
	if st.TasksScheduled == 0 {
		return 0
	}
	return float64(st.TasksCompleted+st.TasksFailed) / float64(st.TasksScheduled)
}

// GetStats returns the current counters
func (s *Scheduler) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ready := 0
	for _, record := range s.tasks {
		if record.state == StatePending && record.pending == 0 {
			ready++
		}
	}

	scheduled := len(s.tasks)
	return Stats{
		TasksScheduled:     scheduled,
		TasksCompleted:     s.completed,
		TasksPending:       scheduled - s.completed - s.failed,
		TasksFailed:        s.failed,
		TasksReady:         ready,
		TasksRunning:       s.running,
		TotalExecutionTime: s.totalExecution,
	}
}
