package wolfe

import "testing"

func mustTodo(t *testing.T, desc *TodoDescription, p TodoParams) *Todo {
	t.Helper()
	todo, err := desc.Todo(p)
	if err != nil {
		t.Fatalf("Todo: %v", err)
	}
	return todo
}

// TestLinearizeSingleJob covers spec.md scenario S1: a lone todo with no
// dependencies linearizes to exactly one job.
func TestLinearizeSingleJob(t *testing.T) {
	desc, _ := NewTodoDescription("job", nil, nil, "")
	root := mustTodo(t, desc, TodoParams{})

	var counter idCounter
	jobs, err := linearize(root, &counter)
	if err != nil {
		t.Fatalf("linearize: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("len(jobs) = %d, want 1", len(jobs))
	}
	if jobs[0].ID != 1 {
		t.Fatalf("jobs[0].ID = %d, want 1", jobs[0].ID)
	}
	if len(jobs[0].Predecessors) != 0 {
		t.Fatalf("expected no predecessors, got %+v", jobs[0].Predecessors)
	}
}

// TestLinearizeFanOutDAG covers spec.md scenario S2's DAG shape:
// A -> {B, C}, C -> D, B -> E. The root (A) is guaranteed the smallest id
// and always comes first; B and C follow in that order since they are
// discovered from A before D/E become reachable. The exact tie-break
// between D and E is not a declared invariant (see DESIGN.md), so this
// only asserts the guaranteed prefix and the general ordering invariant:
// every predecessor's id is strictly less than its dependents'.
func TestLinearizeFanOutDAG(t *testing.T) {
	desc, _ := NewTodoDescription("job", nil, nil, "")

	a := mustTodo(t, desc, TodoParams{})
	b := mustTodo(t, desc, TodoParams{DependsOn: []any{a}})
	c := mustTodo(t, desc, TodoParams{DependsOn: []any{a}})
	_ = mustTodo(t, desc, TodoParams{DependsOn: []any{c}}) // D
	_ = mustTodo(t, desc, TodoParams{DependsOn: []any{b}}) // E

	var counter idCounter
	jobs, err := linearize(a, &counter)
	if err != nil {
		t.Fatalf("linearize: %v", err)
	}
	if len(jobs) != 5 {
		t.Fatalf("len(jobs) = %d, want 5", len(jobs))
	}
	if jobs[0].ID != 1 {
		t.Fatalf("root job id = %d, want 1 (first job emitted is always the root, I1)", jobs[0].ID)
	}
	if jobs[1].ID != 2 || jobs[2].ID != 3 {
		t.Fatalf("jobs[1:3] ids = %d,%d, want 2,3 (B,C discovered before D,E)", jobs[1].ID, jobs[2].ID)
	}

	byID := make(map[JobID]*Job, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}
	for _, j := range jobs {
		for pred := range j.Predecessors {
			if pred >= j.ID {
				t.Fatalf("predecessor %d >= dependent %d (violates I2)", pred, j.ID)
			}
		}
	}
}

// TestLinearizeExternalPredecessor covers a todo depending on an id
// already issued by a previous EnterTodo call rather than a chained Todo.
func TestLinearizeExternalPredecessor(t *testing.T) {
	desc, _ := NewTodoDescription("job", nil, nil, "")
	var counter idCounter
	counter.next() // simulate an already-issued external id (1)

	root := mustTodo(t, desc, TodoParams{DependsOn: []any{JobID(1)}})
	jobs, err := linearize(root, &counter)
	if err != nil {
		t.Fatalf("linearize: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("len(jobs) = %d, want 1", len(jobs))
	}
	if _, ok := jobs[0].Predecessors[JobID(1)]; !ok {
		t.Fatalf("expected job to depend on external id 1, got %+v", jobs[0].Predecessors)
	}
}

// TestLinearizeDiamond covers a diamond dependency (A -> B, A -> C, B ->
// D, C -> D): D must only be emitted once, with both B and C as
// predecessors.
func TestLinearizeDiamond(t *testing.T) {
	desc, _ := NewTodoDescription("job", nil, nil, "")
	a := mustTodo(t, desc, TodoParams{})
	b := mustTodo(t, desc, TodoParams{DependsOn: []any{a}})
	c := mustTodo(t, desc, TodoParams{DependsOn: []any{a}})
	_ = mustTodo(t, desc, TodoParams{DependsOn: []any{b, c}}) // D

	var counter idCounter
	jobs, err := linearize(a, &counter)
	if err != nil {
		t.Fatalf("linearize: %v", err)
	}
	if len(jobs) != 4 {
		t.Fatalf("len(jobs) = %d, want 4", len(jobs))
	}
	d := jobs[len(jobs)-1]
	if len(d.Predecessors) != 2 {
		t.Fatalf("D should have 2 predecessors (B and C), got %+v", d.Predecessors)
	}
}

// TestLinearizeCycleDetected covers a cycle among chained todos. Todo's
// builder API cannot express one (a todo can only depend on todos built
// before it), so the test wires the loop directly by appending the root
// to its dependent's successors and runs the graph-resolution internals
// on that structure.
func TestLinearizeCycleDetected(t *testing.T) {
	desc, _ := NewTodoDescription("job", nil, nil, "")
	a := mustTodo(t, desc, TodoParams{})
	b := mustTodo(t, desc, TodoParams{DependsOn: []any{a}})
	// Manually wire a cycle: b's chain loops back to a.
	b.successors = append(b.successors, a)

	var counter idCounter
	_, err := linearize(a, &counter)
	if err == nil {
		t.Fatal("expected DependencyCycleError")
	}
	if _, ok := err.(*DependencyCycleError); !ok {
		t.Fatalf("err = %v (%T), want *DependencyCycleError", err, err)
	}
}
