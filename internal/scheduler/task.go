package scheduler

import (
	"context"
	"time"
)

// State represents the lifecycle state of a task
type State int

const (
	// StatePending indicates the task is waiting on dependencies or dispatch
	StatePending State = iota
	// StateReady indicates a pending task whose dependencies have all completed.
	// It is derived when a snapshot is taken and never stored.
	StateReady
	// StateRunning indicates the task has been started
	StateRunning
	// StateCompleted indicates the task finished successfully
	StateCompleted
	// StateFailed indicates the task finished with an error
	StateFailed
)

// String returns a string representation of the State
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// MarshalText lets states render by name in JSON output
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Task is a read-only snapshot of a registered task
type Task struct {
	ID           string
	Dependencies []string
	State        State
	Result       any
	Err          error
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns how long the task ran, or zero if it has not finished
func (t Task) Duration() time.Duration {
	if t.StartedAt.IsZero() || t.FinishedAt.IsZero() {
		return 0
	}
	return t.FinishedAt.Sub(t.StartedAt)
}

// Outcome is the per-task result of a concurrent batch
type Outcome struct {
	TaskID     string
	State      State
	Value      any
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
}

// Succeeded reports whether the task completed in this batch
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.State == StateCompleted
}

// Executor runs the work behind a task id. Implementations must be safe for
// concurrent use; the scheduler calls Execute from several workers at once.
type Executor interface {
	Execute(ctx context.Context, taskID string) (any, error)
}

// ExecutorFunc adapts a plain function to the Executor interface
type ExecutorFunc func(ctx context.Context, taskID string) (any, error)

// Execute calls f(ctx, taskID)
func (f ExecutorFunc) Execute(ctx context.Context, taskID string) (any, error) {
	return f(ctx, taskID)
}

// taskRecord is the mutable state behind a Task snapshot
type taskRecord struct {
	id    string
	deps  []string
	state State
	// pending counts dependencies that have not completed, unregistered ids included
	pending    int
	result     any
	err        error
	startedAt  time.Time
	finishedAt time.Time
}

func (r *taskRecord) snapshot() Task {
	state := r.state
	if state == StatePending && r.pending == 0 {
		state = StateReady
	}

	deps := make([]string, len(r.deps))
	copy(deps, r.deps)

	return Task{
		ID:           r.id,
		Dependencies: deps,
		State:        state,
		Result:       r.result,
		Err:          r.err,
		StartedAt:    r.startedAt,
		FinishedAt:   r.finishedAt,
	}
}
