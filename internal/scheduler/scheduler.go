package scheduler

import (
	"strings"
	"sync"
	"time"

	schederrors "github.com/maxkimambo/depsched/internal/errors"
	"github.com/maxkimambo/depsched/internal/logger"
	"github.com/sirupsen/logrus"
)

// Scheduler tracks tasks, their dependencies and lifecycle state
type Scheduler struct {
	config  *Config
	log     *logrus.Entry
	metrics *metrics

	mu sync.RWMutex

	tasks      []*taskRecord
	index      map[string]int
	dependents [][]int
	// waiting holds dependents of ids that have not been registered yet
	waiting map[string][]int

	// version changes on every structural mutation; checked is the version
	// the cached cycle result belongs to
	version  uint64
	checked  uint64
	cycleErr error

	running        int
	completed      int
	failed         int
	totalExecution time.Duration
}

// New creates a scheduler. A nil config uses DefaultConfig.
func New(config *Config) (*Scheduler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	name := config.Name
	if name == "" {
		name = DefaultName
	}

	log := config.Logger
	if log == nil {
		log = logger.Op.Component("scheduler")
	}
	log = log.WithField("scheduler", name)

	m, err := newMetrics(config.Registerer, name)
	if err != nil {
		return nil, schederrors.NewConfigurationError("Registerer", name, "metrics registration failed").
			WithOriginalError(err)
	}

	s := &Scheduler{
		config:  config,
		log:     log,
		metrics: m,
	}
	s.reset()
	return s, nil
}

// Name returns the scheduler instance name
func (s *Scheduler) Name() string {
	if s.config.Name == "" {
		return DefaultName
	}
	return s.config.Name
}

func (s *Scheduler) reset() {
	s.tasks = nil
	s.index = make(map[string]int)
	s.dependents = nil
	s.waiting = make(map[string][]int)
	s.version++
	s.cycleErr = nil
	s.running = 0
	s.completed = 0
	s.failed = 0
	s.totalExecution = 0
}

// RegisterTask adds a task in Pending state. Dependencies may name ids that are
// registered later unless StrictDependencies is set.
func (s *Scheduler) RegisterTask(id string, deps ...string) error {
	if strings.TrimSpace(id) == "" {
		return schederrors.NewEmptyTaskIDError("register task")
	}

	deps = uniqueDeps(deps)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[id]; exists {
		return schederrors.NewDuplicateTaskError(id)
	}

	for _, dep := range deps {
		if strings.TrimSpace(dep) == "" {
			return schederrors.NewEmptyTaskIDError("register task").WithContext("task", id)
		}
		if dep == id {
			return schederrors.NewSelfDependencyError(id)
		}
		if s.config.StrictDependencies {
			if _, ok := s.index[dep]; !ok {
				return schederrors.NewUnknownTaskError(dep, "register task").
					WithContext("dependent", id).
					WithTroubleshooting("Register dependencies before the tasks that use them")
			}
		}
	}

	idx := len(s.tasks)
	record := &taskRecord{
		id:    id,
		deps:  deps,
		state: StatePending,
	}
	s.tasks = append(s.tasks, record)
	s.index[id] = idx
	s.dependents = append(s.dependents, nil)

	for _, dep := range deps {
		depIdx, ok := s.index[dep]
		if !ok {
			s.waiting[dep] = append(s.waiting[dep], idx)
			record.pending++
			continue
		}
		s.dependents[depIdx] = append(s.dependents[depIdx], idx)
		if s.tasks[depIdx].state != StateCompleted {
			record.pending++
		}
	}

	// Tasks registered earlier that named this id now hang off it
	if parked, ok := s.waiting[id]; ok {
		s.dependents[idx] = parked
		delete(s.waiting, id)
	}

	s.version++
	s.metrics.registered()

	s.log.WithFields(logrus.Fields{
		"task":         id,
		"dependencies": deps,
		"pending":      record.pending,
	}).Debug("Task registered")

	return nil
}

// GetTask returns a snapshot of the task
func (s *Scheduler) GetTask(id string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index[id]
	if !ok {
		return Task{}, schederrors.NewUnknownTaskError(id, "get task")
	}
	return s.tasks[idx].snapshot(), nil
}

// GetResult returns the value a completed task produced. Tasks that have not
// completed yield nil.
func (s *Scheduler) GetResult(id string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index[id]
	if !ok {
		return nil, schederrors.NewUnknownTaskError(id, "get result")
	}
	return s.tasks[idx].result, nil
}

// CanExecute reports whether every dependency of the task has completed
func (s *Scheduler) CanExecute(id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index[id]
	if !ok {
		return false, schederrors.NewUnknownTaskError(id, "check task")
	}
	return s.tasks[idx].pending == 0, nil
}

// Tasks returns snapshots of every task in registration order
func (s *Scheduler) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Task, len(s.tasks))
	for i, record := range s.tasks {
		out[i] = record.snapshot()
	}
	return out
}

// Len returns the number of registered tasks
func (s *Scheduler) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Clear drops every task and resets statistics
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := len(s.tasks)
	s.reset()
	s.metrics.setRunning(0)
	s.log.WithField("dropped", dropped).Debug("Scheduler cleared")
}

// Close unregisters the scheduler's metrics so another scheduler with the same
// name can use the registerer. Tasks are kept; later transitions are no
// longer recorded. Close is safe to call more than once.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.unregister()
	s.metrics = nil
}

// uniqueDeps drops repeated ids, keeping first occurrence order
func uniqueDeps(deps []string) []string {
	if len(deps) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(deps))
	out := make([]string, 0, len(deps))
	for _, dep := range deps {
		if _, ok := seen[dep]; ok {
			continue
		}
		seen[dep] = struct{}{}
		out = append(out, dep)
	}
	return out
}
