package workflow

import (
	"context"
	"fmt"
	"sort"

	schederrors "github.com/maxkimambo/depsched/internal/errors"
	"github.com/maxkimambo/depsched/internal/scheduler"
)

// TaskFunc is the function signature for a task's execution logic. The
// returned value is published to the SharedContext under the task id.
type TaskFunc func(ctx context.Context, sharedCtx *SharedContext) (any, error)

// Task represents a single unit of work in a workflow.
type Task struct {
	ID        string
	Handler   TaskFunc
	DependsOn []string // IDs of tasks this task depends on
}

// Workflow represents a collection of tasks and their dependencies.
type Workflow struct {
	ID    string
	Tasks map[string]*Task
	// Order lists task ids in the order they were added
	Order []string
}

// Register adds every task of the workflow to s in the order they were added
func (w *Workflow) Register(s *scheduler.Scheduler) error {
	for _, id := range w.order() {
		task := w.Tasks[id]
		if err := s.RegisterTask(task.ID, task.DependsOn...); err != nil {
			return err
		}
	}
	return nil
}

// ExecutionOrder returns the order tasks would run in sequentially
func (w *Workflow) ExecutionOrder() ([]string, error) {
	s, err := scheduler.New(&scheduler.Config{
		Name:               w.ID,
		MaxConcurrentTasks: 1,
		Logger:             discardLogger(),
	})
	if err != nil {
		return nil, err
	}
	if err := w.Register(s); err != nil {
		return nil, err
	}
	return s.GetExecutionOrder()
}

// executor adapts the workflow's handlers to the scheduler's Executor
func (w *Workflow) executor(shared *SharedContext) scheduler.Executor {
	return scheduler.ExecutorFunc(func(ctx context.Context, taskID string) (any, error) {
		task, ok := w.Tasks[taskID]
		if !ok {
			return nil, schederrors.NewUnknownTaskError(taskID, "execute task")
		}
		if task.Handler == nil {
			return nil, fmt.Errorf("task %s has no handler", taskID)
		}
		return task.Handler(ctx, shared)
	})
}

// order returns task ids in insertion order. Tasks missing from Order, as in
// workflows built by hand, follow in id order.
func (w *Workflow) order() []string {
	if len(w.Order) == len(w.Tasks) {
		return w.Order
	}
	ids := make([]string, 0, len(w.Tasks))
	seen := make(map[string]bool, len(w.Order))
	for _, id := range w.Order {
		if _, ok := w.Tasks[id]; ok && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	rest := make([]string, 0, len(w.Tasks)-len(ids))
	for id := range w.Tasks {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}
