package scheduler

import (
	schederrors "github.com/maxkimambo/depsched/internal/errors"
)

// GetExecutionOrder returns every registered task id in an order where each
// dependency precedes its dependents. Ties are broken by registration order.
// It fails without a partial order if a dependency is unregistered or the
// graph contains a cycle.
func (s *Scheduler) GetExecutionOrder() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if missing := s.missingLocked(); len(missing) > 0 {
		return nil, schederrors.NewMissingDependencyError(missing)
	}

	order, blocked := s.kahnLocked()
	if len(blocked) > 0 {
		return nil, s.cycleErrorLocked(blocked)
	}

	ids := make([]string, len(order))
	for i, idx := range order {
		ids[i] = s.tasks[idx].id
	}
	return ids, nil
}

// GetReadyTasks returns the ids of pending tasks whose dependencies have all
// completed, in registration order. It fails if the registered graph contains
// a cycle so that no task on a loop is ever reported.
func (s *Scheduler) GetReadyTasks() ([]string, error) {
	if err := s.checkCycles(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ready := make([]string, 0)
	for _, record := range s.tasks {
		if record.state == StatePending && record.pending == 0 {
			ready = append(ready, record.id)
		}
	}
	return ready, nil
}

// Validate runs cycle and missing dependency checks without producing an order
func (s *Scheduler) Validate() error {
	_, err := s.GetExecutionOrder()
	return err
}

// checkCycles runs the cycle check once per graph version
func (s *Scheduler) checkCycles() error {
	s.mu.RLock()
	if s.checked == s.version {
		err := s.cycleErr
		s.mu.RUnlock()
		return err
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checked == s.version {
		return s.cycleErr
	}

	s.cycleErr = nil
	if _, blocked := s.kahnLocked(); len(blocked) > 0 {
		s.cycleErr = s.cycleErrorLocked(blocked)
		s.log.WithField("blocked", len(blocked)).Warn("Dependency cycle detected")
	}
	s.checked = s.version
	return s.cycleErr
}

// kahnLocked orders task indexes with Kahn's algorithm. Only registered
// dependencies that have not completed count toward in-degree. Indexes that
// could not be ordered are returned as blocked, in registration order.
func (s *Scheduler) kahnLocked() (order, blocked []int) {
	n := len(s.tasks)
	indeg := make([]int, n)
	for i, record := range s.tasks {
		for _, dep := range record.deps {
			depIdx, ok := s.index[dep]
			if !ok {
				continue
			}
			if s.tasks[depIdx].state != StateCompleted {
				indeg[i]++
			}
		}
	}

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}

	order = make([]int, 0, n)
	for head := 0; head < len(queue); head++ {
		idx := queue[head]
		order = append(order, idx)

		// A completed dependency was never counted toward its dependents
		if s.tasks[idx].state == StateCompleted {
			continue
		}
		for _, dependent := range s.dependents[idx] {
			indeg[dependent]--
			if indeg[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) == n {
		return order, nil
	}

	for i := 0; i < n; i++ {
		if indeg[i] > 0 {
			blocked = append(blocked, i)
		}
	}
	return order, blocked
}

// cycleErrorLocked builds a circular dependency error naming one concrete loop
func (s *Scheduler) cycleErrorLocked(blocked []int) error {
	ids := make([]string, len(blocked))
	for i, idx := range blocked {
		ids[i] = s.tasks[idx].id
	}
	return schederrors.NewCircularDependencyError(s.findCycleLocked(blocked), ids)
}

// findCycleLocked walks dependency edges inside the blocked set until an index
// repeats. Every blocked task has a blocked dependency, so the walk always
// closes a loop. The result reads in dependency order with the first id
// repeated at the end.
func (s *Scheduler) findCycleLocked(blocked []int) []string {
	inBlocked := make(map[int]bool, len(blocked))
	for _, idx := range blocked {
		inBlocked[idx] = true
	}

	seen := make(map[int]int)
	path := make([]int, 0, len(blocked))
	current := blocked[0]
	for {
		if pos, ok := seen[current]; ok {
			path = path[pos:]
			break
		}
		seen[current] = len(path)
		path = append(path, current)

		next := -1
		for _, dep := range s.tasks[current].deps {
			depIdx, ok := s.index[dep]
			if ok && inBlocked[depIdx] {
				next = depIdx
				break
			}
		}
		if next < 0 {
			return nil
		}
		current = next
	}

	// path follows task -> dependency edges; reverse it so each id runs before the next
	cycle := make([]string, 0, len(path)+1)
	for i := len(path) - 1; i >= 0; i-- {
		cycle = append(cycle, s.tasks[path[i]].id)
	}
	cycle = append(cycle, cycle[0])
	return cycle
}

// missingLocked maps each task to the dependency ids that are not registered
func (s *Scheduler) missingLocked() map[string][]string {
	if len(s.waiting) == 0 {
		return nil
	}
	missing := make(map[string][]string)
	for _, record := range s.tasks {
		for _, dep := range record.deps {
			if _, ok := s.index[dep]; !ok {
				missing[record.id] = append(missing[record.id], dep)
			}
		}
	}
	return missing
}
