package wolfe

import "fmt"

// LockConflictError is raised at Todo/TodoDescription construction when a
// single todo's locks contradict themselves on exclusivity for the same
// name.
type LockConflictError struct {
	Name string
}

func (e *LockConflictError) Error() string {
	return fmt.Sprintf("wolfe: lock conflict on %q", e.Name)
}

// NonExclusiveLockError is raised when a Lock with Exclusive=false is
// supplied. Wolfe's lock manager only supports exclusive locks (spec.md
// §9 open question 1); rather than silently downgrading or asserting deep
// inside the lock manager, construction fails here. See DESIGN.md.
type NonExclusiveLockError struct {
	Name string
}

func (e *NonExclusiveLockError) Error() string {
	return fmt.Sprintf("wolfe: non-exclusive lock %q is not supported", e.Name)
}

// DependencyCycleError is raised by EnterTodo when the todo graph
// contains a cycle. Todos lists every todo the linearizer could not
// order, translated back from internal virtual-node ids, in discovery
// order: the todos on the cycle plus any todos that depend on it. The
// list is not arranged in cycle order. No jobs are created when this
// error is returned.
type DependencyCycleError struct {
	Todos []*Todo
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("wolfe: dependency cycle detected among %d todo(s)", len(e.Todos))
}

// InvalidPredecessorError is raised when a predecessor job id is
// non-positive or not strictly less than the id it would be attached to.
type InvalidPredecessorError struct {
	JobID int64
}

func (e *InvalidPredecessorError) Error() string {
	return fmt.Sprintf("wolfe: invalid predecessor job id %d", e.JobID)
}

// JobNotFoundError is raised by FinishJob when the given job id has no
// outstanding assignment.
type JobNotFoundError struct {
	JobID JobID
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("wolfe: job %d not found (no outstanding assignment)", e.JobID)
}

// InvalidExecutorError is raised by FinishJob when the executor uid does
// not own the assignment for the given job id.
type InvalidExecutorError struct {
	JobID    JobID
	Executor string
}

func (e *InvalidExecutorError) Error() string {
	return fmt.Sprintf("wolfe: executor %q does not own job %d", e.Executor, e.JobID)
}
