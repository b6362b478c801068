package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	schederrors "github.com/maxkimambo/depsched/internal/errors"
	"github.com/maxkimambo/depsched/internal/logger"
	"github.com/maxkimambo/depsched/internal/progress"
	"github.com/maxkimambo/depsched/internal/scheduler"
	"github.com/sirupsen/logrus"
)

// Report summarises a workflow run
type Report struct {
	RunID      string
	WorkflowID string
	Stats      scheduler.Stats
	Outcomes   map[string]scheduler.Outcome
	// Order is the sequential execution order the run was checked against
	Order []string
	// Failed lists failed tasks in registration order
	Failed []string
	// Blocked lists tasks left pending behind a failed dependency, directly
	// or through another blocked task
	Blocked  []string
	// Pending lists tasks that never started for another reason, such as
	// cancellation
	Pending  []string
	Batches  int
	Duration time.Duration
}

// Success reports whether every task completed
func (r *Report) Success() bool {
	return len(r.Failed) == 0 && len(r.Blocked) == 0 && len(r.Pending) == 0 && r.Stats.TasksPending == 0
}

// Err joins the errors of failed tasks, or returns nil
func (r *Report) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, id := range r.Failed {
		if outcome, ok := r.Outcomes[id]; ok && outcome.Err != nil {
			errs = append(errs, outcome.Err)
		}
	}
	return errors.Join(errs...)
}

// classify fills Failed, Blocked and Pending from the final task snapshots.
// Order is topological, so a task's dependencies are settled before it.
func (r *Report) classify(tasks []scheduler.Task) {
	byID := make(map[string]scheduler.Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
		if task.State == scheduler.StateFailed {
			r.Failed = append(r.Failed, task.ID)
		}
	}

	blocked := make(map[string]bool)
	for _, id := range r.Order {
		task := byID[id]
		if task.State != scheduler.StatePending {
			continue
		}
		for _, dep := range task.Dependencies {
			if byID[dep].State == scheduler.StateFailed || blocked[dep] {
				blocked[id] = true
				break
			}
		}
	}

	for _, task := range tasks {
		if task.State != scheduler.StatePending {
			continue
		}
		if blocked[task.ID] {
			r.Blocked = append(r.Blocked, task.ID)
		} else {
			r.Pending = append(r.Pending, task.ID)
		}
	}
}

// Runner drives a workflow through a scheduler until no task is ready
type Runner struct {
	workflow *Workflow
	config   scheduler.Config
	shared   *SharedContext
	reporter *progress.Reporter
}

// NewRunner creates a runner. A nil config uses scheduler.DefaultConfig with
// the workflow id as scheduler name.
func NewRunner(w *Workflow, config *scheduler.Config) *Runner {
	if config == nil {
		config = scheduler.DefaultConfig()
		config.Name = w.ID
	}
	return &Runner{
		workflow: w,
		config:   *config,
		shared:   NewSharedContext(),
		reporter: progress.NewReporter(),
	}
}

// WithSharedContext sets the context handed to every task handler
func (r *Runner) WithSharedContext(sc *SharedContext) *Runner {
	r.shared = sc
	return r
}

// SharedContext returns the context handed to task handlers
func (r *Runner) SharedContext() *SharedContext {
	return r.shared
}

// Run registers the workflow, then dispatches ready tasks batch by batch
// until none is left. Task failures are reported in the Report; the returned
// error is reserved for invalid workflows and cancellation.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	runID := uuid.New().String()

	config := r.config
	if config.Logger == nil {
		config.Logger = logger.Op.Component("workflow")
	}
	config.Logger = config.Logger.WithFields(logrus.Fields{
		"workflow": r.workflow.ID,
		"run_id":   runID,
	})
	log := config.Logger

	s, err := scheduler.New(&config)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if err := r.workflow.Register(s); err != nil {
		return nil, err
	}

	order, err := s.GetExecutionOrder()
	if err != nil {
		logger.User.Errorf("Workflow %s is invalid: %v", r.workflow.ID, err)
		return nil, err
	}

	report := &Report{
		RunID:      runID,
		WorkflowID: r.workflow.ID,
		Outcomes:   make(map[string]scheduler.Outcome, len(order)),
		Order:      order,
	}

	logger.User.Startingf("Running workflow %s: %d tasks (max %d parallel)",
		r.workflow.ID, len(order), config.MaxConcurrentTasks)
	log.WithField("order", order).Debug("Execution order resolved")

	exec := r.workflow.executor(r.shared)

	var runErr error
	for {
		ready, err := s.GetReadyTasks()
		if err != nil {
			runErr = err
			break
		}
		if len(ready) == 0 {
			break
		}

		report.Batches++
		log.Debug(r.reporter.ReportBatchStart(report.Batches, ready))

		batchStart := time.Now()
		outcomes, err := s.ExecuteConcurrent(ctx, ready, exec)

		failed := 0
		for id, outcome := range outcomes {
			report.Outcomes[id] = outcome
			switch {
			case outcome.Succeeded():
				r.shared.Set(id, outcome.Value)
				log.WithField("task", id).Debug(r.reporter.ReportTaskComplete(id, outcome.Duration, true))
			case outcome.State == scheduler.StateFailed:
				failed++
				logger.User.Errorf("Task %s failed: %v", id, outcome.Err)
				var taskErr *schederrors.TaskError
				if errors.As(outcome.Err, &taskErr) {
					log.WithField("task", id).Debug(taskErr.Detailed())
				}
			}
		}
		log.Debug(r.reporter.ReportBatchComplete(report.Batches, time.Since(batchStart), failed))

		stats := s.GetStats()
		logger.User.Info(r.reporter.Report(progress.Info{
			RunID:     runID,
			Batch:     report.Batches,
			Total:     stats.TasksScheduled,
			Completed: stats.TasksCompleted,
			Failed:    stats.TasksFailed,
			Running:   stats.TasksRunning,
			Ready:     stats.TasksReady,
			Elapsed:   time.Since(start),
		}))

		if err != nil {
			runErr = err
			break
		}
	}

	report.classify(s.Tasks())

	report.Stats = s.GetStats()
	report.Duration = time.Since(start)

	switch {
	case runErr != nil:
		logger.User.Errorf("Workflow %s interrupted: %v", r.workflow.ID, runErr)
	case report.Success():
		logger.User.Successf("Workflow %s completed %d tasks in %s",
			r.workflow.ID, report.Stats.TasksCompleted, progress.FormatDuration(report.Duration))
	default:
		logger.User.Errorf("Workflow %s finished with %d failed and %d blocked tasks",
			r.workflow.ID, len(report.Failed), len(report.Blocked))
		for _, id := range report.Blocked {
			log.WithField("task", id).Warn("Task blocked by failed dependency")
		}
	}

	return report, runErr
}
