// Package scheduler implements a dependency-aware task scheduler.
//
// A Scheduler owns a set of tasks identified by string ids. Each task names the
// ids it depends on; the scheduler derives an execution order with Kahn's
// algorithm, reports which tasks are ready to run, enforces the lifecycle
//
//	Pending -> Running -> Completed | Failed
//
// and dispatches batches of ready tasks to a bounded worker pool that calls a
// caller-supplied Executor. The scheduler never runs business logic itself.
//
// The graph is stored as an index arena: ids map to positions in a slice in
// registration order and dependents are kept as index lists. Every exported
// method is safe for concurrent use; instances share no state.
package scheduler
