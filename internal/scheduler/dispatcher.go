package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	schederrors "github.com/maxkimambo/depsched/internal/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/maxkimambo/depsched/internal/scheduler")

// ExecuteConcurrent starts every id in the batch, runs exec for each on a pool
// of at most MaxConcurrentTasks workers and records the result. It returns once
// every started task is Completed or Failed.
//
// A failing task does not stop its siblings. Ids that cannot start (unknown,
// not pending, dependencies incomplete) are reported in the outcome map with
// the structural error and are not executed. If ctx is cancelled, tasks not yet
// picked up by a worker stay Pending and the call returns ctx.Err() after the
// running tasks finish.
func (s *Scheduler) ExecuteConcurrent(ctx context.Context, ids []string, exec Executor) (map[string]Outcome, error) {
	if exec == nil {
		return nil, schederrors.NewNilExecutorError()
	}

	ids = uniqueDeps(ids)
	outcomes := make(map[string]Outcome, len(ids))
	if len(ids) == 0 {
		return outcomes, nil
	}

	workers := min(s.config.MaxConcurrentTasks, len(ids))

	ctx, span := tracer.Start(ctx, "scheduler.ExecuteConcurrent",
		trace.WithAttributes(
			attribute.String("scheduler.name", s.Name()),
			attribute.Int("scheduler.batch_size", len(ids)),
			attribute.Int("scheduler.workers", workers),
		),
	)
	defer span.End()

	s.log.WithFields(logrus.Fields{
		"tasks":   len(ids),
		"workers": workers,
	}).Debug("Dispatching batch")

	start := time.Now()

	queue := make(chan string, len(ids))
	for _, id := range ids {
		queue <- id
	}
	close(queue)

	var mu sync.Mutex
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for id := range queue {
				outcome := s.runTask(ctx, id, exec)
				mu.Lock()
				outcomes[id] = outcome
				mu.Unlock()
			}
			return nil
		})
	}
	// Workers never return an error; task failures are recorded as outcomes
	_ = g.Wait()

	elapsed := time.Since(start)

	s.mu.Lock()
	s.totalExecution += elapsed
	s.metrics.observeBatch(len(ids), elapsed)
	s.mu.Unlock()

	completed, failed, skipped := 0, 0, 0
	for _, outcome := range outcomes {
		switch {
		case outcome.Succeeded():
			completed++
		case outcome.State == StateFailed:
			failed++
		default:
			skipped++
		}
	}

	span.SetAttributes(
		attribute.Int("scheduler.completed", completed),
		attribute.Int("scheduler.failed", failed),
		attribute.Int("scheduler.skipped", skipped),
	)

	fields := logrus.Fields{
		"tasks":     len(ids),
		"completed": completed,
		"failed":    failed,
		"skipped":   skipped,
		"duration":  elapsed,
	}

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "context canceled")
		s.log.WithFields(fields).WithError(err).Warn("Batch interrupted")
		return outcomes, err
	}

	if failed > 0 || skipped > 0 {
		span.SetStatus(codes.Error, "batch had failed or skipped tasks")
		s.log.WithFields(fields).Warn("Batch finished with failures")
	} else {
		span.SetStatus(codes.Ok, "")
		s.log.WithFields(fields).Info("Batch finished")
	}

	return outcomes, nil
}

// runTask drives one id through start, execution and its terminal transition
func (s *Scheduler) runTask(ctx context.Context, id string, exec Executor) Outcome {
	if err := ctx.Err(); err != nil {
		return s.unstartedOutcome(id, err)
	}

	s.mu.Lock()
	record, err := s.startLocked(id, time.Now())
	s.mu.Unlock()
	if err != nil {
		s.log.WithField("task", id).WithError(err).Debug("Task not started")
		return s.unstartedOutcome(id, err)
	}
	started := record.startedAt

	taskCtx, span := tracer.Start(ctx, "scheduler.task",
		trace.WithAttributes(
			attribute.String("task.id", id),
			attribute.StringSlice("task.dependencies", record.deps),
		),
	)
	defer span.End()

	if s.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(taskCtx, s.config.TaskTimeout)
		defer cancel()
	}

	value, execErr := invoke(taskCtx, id, exec)
	finished := time.Now()

	outcome := Outcome{
		TaskID:     id,
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var transitionErr error
	if execErr != nil {
		if !errors.Is(execErr, schederrors.ErrExecution) {
			execErr = schederrors.NewExecutionError(id, execErr)
		}
		span.RecordError(execErr)
		span.SetStatus(codes.Error, execErr.Error())

		outcome.State = StateFailed
		outcome.Err = execErr
		transitionErr = s.failLocked(id, execErr, finished)
	} else {
		span.SetStatus(codes.Ok, "")

		outcome.State = StateCompleted
		outcome.Value = value
		transitionErr = s.completeLocked(id, value, finished)
	}

	// The caller finished the task itself while the callback ran
	if transitionErr != nil {
		outcome.State = record.state
		if outcome.Err == nil {
			outcome.Err = transitionErr
		}
		s.log.WithField("task", id).WithError(transitionErr).Warn("Task finished outside the dispatcher")
	}

	return outcome
}

// invoke calls the executor, converting a panic into an execution error
func invoke(ctx context.Context, id string, exec Executor) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = schederrors.NewPanicError(id, r)
		}
	}()
	return exec.Execute(ctx, id)
}

func (s *Scheduler) unstartedOutcome(id string, err error) Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()

	outcome := Outcome{TaskID: id, State: StatePending, Err: err}
	if idx, ok := s.index[id]; ok {
		outcome.State = s.tasks[idx].state
	}
	return outcome
}
