package workflow

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Builder is a builder for creating Workflow instances with validation
type Builder struct {
	workflowID   string
	tasks        map[string]*Task
	order        []string
	dependencies map[string][]string // taskID -> list of dependency IDs
	err          error
}

// NewBuilder creates a new Builder with the given workflow ID
func NewBuilder(id string) *Builder {
	return &Builder{
		workflowID:   id,
		tasks:        make(map[string]*Task),
		dependencies: make(map[string][]string),
	}
}

// AddTask adds a task to the workflow being built. Adding the same id twice
// makes Build fail.
func (b *Builder) AddTask(id string, handler TaskFunc) *Builder {
	if _, exists := b.tasks[id]; exists {
		if b.err == nil {
			b.err = fmt.Errorf("task '%s' added twice", id)
		}
		return b
	}
	b.tasks[id] = &Task{
		ID:      id,
		Handler: handler,
	}
	b.order = append(b.order, id)
	return b
}

// AddDependency defines a dependency between two tasks
func (b *Builder) AddDependency(taskID string, dependencyID string) *Builder {
	b.dependencies[taskID] = append(b.dependencies[taskID], dependencyID)
	return b
}

// Build validates and constructs the final Workflow object
func (b *Builder) Build() (*Workflow, error) {
	w, err := b.workflow()
	if err != nil {
		return nil, err
	}

	if _, err := w.ExecutionOrder(); err != nil {
		return nil, fmt.Errorf("invalid workflow structure: %w", err)
	}

	return w, nil
}

// ShowOrder returns the planned execution order without building the full Workflow
func (b *Builder) ShowOrder() ([]string, error) {
	w, err := b.workflow()
	if err != nil {
		return nil, err
	}
	return w.ExecutionOrder()
}

// workflow assembles the tasks after checking every dependency exists
func (b *Builder) workflow() (*Workflow, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.validateDependencies(); err != nil {
		return nil, err
	}

	tasks := make(map[string]*Task, len(b.tasks))
	for id, task := range b.tasks {
		tasks[id] = &Task{
			ID:        task.ID,
			Handler:   task.Handler,
			DependsOn: append([]string(nil), b.dependencies[id]...),
		}
	}

	order := make([]string, len(b.order))
	copy(order, b.order)

	return &Workflow{
		ID:    b.workflowID,
		Tasks: tasks,
		Order: order,
	}, nil
}

// validateDependencies ensures all dependencies reference existing tasks
func (b *Builder) validateDependencies() error {
	for _, taskID := range b.dependencyOrder() {
		if _, exists := b.tasks[taskID]; !exists {
			return fmt.Errorf("dependency declared for non-existent task '%s'", taskID)
		}
		for _, depID := range b.dependencies[taskID] {
			if _, exists := b.tasks[depID]; !exists {
				return fmt.Errorf("task '%s' depends on non-existent task '%s'", taskID, depID)
			}
		}
	}
	return nil
}

// dependencyOrder lists tasks with declared dependencies, known tasks first in
// insertion order
func (b *Builder) dependencyOrder() []string {
	ids := make([]string, 0, len(b.dependencies))
	for _, id := range b.order {
		if _, ok := b.dependencies[id]; ok {
			ids = append(ids, id)
		}
	}
	for id := range b.dependencies {
		if _, ok := b.tasks[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
