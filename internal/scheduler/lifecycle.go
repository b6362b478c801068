package scheduler

import (
	"errors"
	"time"

	schederrors "github.com/maxkimambo/depsched/internal/errors"
	"github.com/sirupsen/logrus"
)

// MarkStarted moves a pending task whose dependencies have completed to Running
func (s *Scheduler) MarkStarted(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.startLocked(id, time.Now())
	return err
}

// MarkCompleted records the task's result and unlocks its dependents
func (s *Scheduler) MarkCompleted(id string, result any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.completeLocked(id, result, time.Now())
}

// MarkFailed records the task's error. Dependents stay pending; the scheduler
// does not propagate failure.
func (s *Scheduler) MarkFailed(id string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.failLocked(id, cause, time.Now())
}

func (s *Scheduler) startLocked(id string, now time.Time) (*taskRecord, error) {
	idx, ok := s.index[id]
	if !ok {
		return nil, schederrors.NewUnknownTaskError(id, "mark started")
	}
	record := s.tasks[idx]

	if record.state != StatePending {
		return nil, schederrors.NewInvalidTransitionError(id, record.state.String(), StateRunning.String(),
			schederrors.CodeNotPending, "only pending tasks can start")
	}
	if record.pending > 0 {
		return nil, schederrors.NewInvalidTransitionError(id, record.state.String(), StateRunning.String(),
			schederrors.CodeDependenciesIncomplete, "dependencies have not completed").
			WithContext("waiting_on", s.incompleteDepsLocked(record)).
			WithTroubleshooting("Start tasks returned by GetReadyTasks only")
	}

	record.state = StateRunning
	record.startedAt = now
	s.running++
	s.metrics.transition(StateRunning)
	s.metrics.setRunning(s.running)

	s.log.WithField("task", id).Debug("Task started")
	return record, nil
}

func (s *Scheduler) completeLocked(id string, result any, now time.Time) error {
	idx, record, err := s.runningLocked(id, StateCompleted, "mark completed")
	if err != nil {
		return err
	}

	record.state = StateCompleted
	record.result = result
	record.finishedAt = now
	s.running--
	s.completed++

	unlocked := 0
	for _, dependent := range s.dependents[idx] {
		s.tasks[dependent].pending--
		if s.tasks[dependent].pending == 0 && s.tasks[dependent].state == StatePending {
			unlocked++
		}
	}

	s.metrics.transition(StateCompleted)
	s.metrics.setRunning(s.running)
	s.metrics.observeDuration(StateCompleted, record.finishedAt.Sub(record.startedAt))

	s.log.WithFields(logrus.Fields{
		"task":     id,
		"duration": record.finishedAt.Sub(record.startedAt),
		"unlocked": unlocked,
	}).Debug("Task completed")
	return nil
}

func (s *Scheduler) failLocked(id string, cause error, now time.Time) error {
	_, record, err := s.runningLocked(id, StateFailed, "mark failed")
	if err != nil {
		return err
	}

	if cause == nil {
		cause = errors.New("task failed without an error")
	}

	record.state = StateFailed
	record.err = cause
	record.finishedAt = now
	s.running--
	s.failed++

	s.metrics.transition(StateFailed)
	s.metrics.setRunning(s.running)
	s.metrics.observeDuration(StateFailed, record.finishedAt.Sub(record.startedAt))

	s.log.WithFields(logrus.Fields{
		"task":       id,
		"error":      cause,
		"dependents": len(s.dependents[s.index[id]]),
	}).Debug("Task failed")
	return nil
}

// runningLocked looks up a task that must be Running to move to target
func (s *Scheduler) runningLocked(id string, target State, operation string) (int, *taskRecord, error) {
	idx, ok := s.index[id]
	if !ok {
		return 0, nil, schederrors.NewUnknownTaskError(id, operation)
	}
	record := s.tasks[idx]
	if record.state != StateRunning {
		return 0, nil, schederrors.NewInvalidTransitionError(id, record.state.String(), target.String(),
			schederrors.CodeNotRunning, "only running tasks can finish")
	}
	return idx, record, nil
}

func (s *Scheduler) incompleteDepsLocked(record *taskRecord) []string {
	var out []string
	for _, dep := range record.deps {
		depIdx, ok := s.index[dep]
		if !ok || s.tasks[depIdx].state != StateCompleted {
			out = append(out, dep)
		}
	}
	return out
}
