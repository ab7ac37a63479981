package wolfe

// linearizer turns a root Todo's dependency DAG into a topologically
// ordered list of Jobs, assigning real job ids along the way. Ported in
// spirit from scheduler/_job.py:joblist_from_todo, whose actual graph
// resolution lived in a sibling module this port has no source for (see
// DESIGN.md) — the Kahn's-algorithm implementation below is designed from
// the documented contract: a topological order over a graph of virtual
// todo nodes and terminal external-predecessor nodes, with cycles
// detected and reported as the list of offending Todos.

// linNode identifies a node in the linearization graph: either a virtual
// todo (not yet assigned a real job id) or a terminal external
// predecessor (an id already present in the system), or the single
// synthetic anchor used to seed the root todo's readiness.
type linNode struct {
	virtual bool
	id      int64 // virtual index, external JobID, or -1 for the anchor
}

var linAnchor = linNode{virtual: false, id: -1}

// linearize walks the todo graph reachable from root, detects cycles, and
// returns the resulting Jobs in topological order. The first Job in the
// result corresponds to root.
func linearize(root *Todo, counter *idCounter) ([]*Job, error) {
	type pending struct {
		node []linNode // predecessor keys recorded for this virtual node
	}

	virtualOf := map[*Todo]int{}
	todoOf := []*Todo{}
	preOf := [][]linNode{}

	adj := map[linNode][]linNode{}
	indeg := map[linNode]int{}

	addEdge := func(from, to linNode) {
		adj[from] = append(adj[from], to)
		indeg[to]++
		if _, ok := indeg[from]; !ok {
			indeg[from] = 0
		}
	}

	type stackEntry struct {
		todo   *Todo
		parent *linNode
	}
	stack := []stackEntry{{root, nil}}

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		vid, seen := virtualOf[e.todo]
		if !seen {
			vid = len(todoOf)
			virtualOf[e.todo] = vid
			todoOf = append(todoOf, e.todo)
			preOf = append(preOf, nil)

			for _, predID := range e.todo.Predecessors() {
				key := linNode{virtual: false, id: int64(predID)}
				addEdge(key, linNode{virtual: true, id: int64(vid)})
				preOf[vid] = append(preOf[vid], key)
			}

			succs := e.todo.Successors()
			self := linNode{virtual: true, id: int64(vid)}
			for i := len(succs) - 1; i >= 0; i-- {
				p := self
				stack = append(stack, stackEntry{succs[i], &p})
			}
		}

		self := linNode{virtual: true, id: int64(vid)}
		if e.parent != nil {
			addEdge(*e.parent, self)
			preOf[vid] = append(preOf[vid], *e.parent)
		} else {
			addEdge(linAnchor, self)
		}
	}

	total := len(indeg)
	if _, ok := indeg[linAnchor]; !ok {
		indeg[linAnchor] = 0
		total++
	}

	queue := make([]linNode, 0, total)
	for node, d := range indeg {
		if d == 0 {
			queue = append(queue, node)
		}
	}

	order := make([]linNode, 0, total)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, to := range adj[n] {
			indeg[to]--
			if indeg[to] == 0 {
				queue = append(queue, to)
			}
		}
	}

	if len(order) < total {
		processed := map[linNode]struct{}{}
		for _, n := range order {
			processed[n] = struct{}{}
		}
		var cycle []*Todo
		for vid, t := range todoOf {
			n := linNode{virtual: true, id: int64(vid)}
			if _, ok := processed[n]; !ok {
				cycle = append(cycle, t)
			}
		}
		return nil, &DependencyCycleError{Todos: cycle}
	}

	idMapping := map[int64]JobID{}
	jobs := make([]*Job, 0, len(todoOf))
	for _, n := range order {
		if !n.virtual {
			continue
		}
		vid := n.id
		todo := todoOf[vid]
		job := newJob(counter.next(), todo)
		idMapping[vid] = job.ID

		for _, pre := range preOf[vid] {
			if pre.virtual {
				if err := job.dependOn(idMapping[pre.id]); err != nil {
					return nil, err
				}
			} else if pre != linAnchor {
				if err := job.dependOn(JobID(pre.id)); err != nil {
					return nil, err
				}
			}
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}
