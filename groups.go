package wolfe

import (
	"strconv"

	"github.com/relayforge/wolfe/internal/pqueue"
)

// groupLess implements the group-queue ordering of spec.md §4.6: higher
// importance first; among equal importance, lower id first. (The
// original's QueuedJob.__lt__ writes this as `importance > other or id <
// other`, which is not a valid strict order when importance and id
// disagree in direction; Wolfe implements the lexicographic form the
// prose actually describes — see DESIGN.md.)
func groupLess(a, b *Job) bool {
	if a.Importance != b.Importance {
		return a.Importance > b.Importance
	}
	return a.ID < b.ID
}

// group is a per-group priority queue of lock-holding, dependency-free
// jobs ready to dispatch. Ported from scheduler/_group.py.
type group struct {
	name    string
	locks   *lockManager
	queue   *pqueue.Queue[*Job]
	onEmpty func(name string)
}

func newGroup(name string, locks *lockManager, onEmpty func(string)) *group {
	return &group{
		name:    name,
		locks:   locks,
		queue:   pqueue.New(groupLess),
		onEmpty: onEmpty,
	}
}

func (g *group) empty() bool { return g.queue.Empty() }

// schedule attempts to acquire the job's locks and, if successful, enters
// it into the queue. It panics on lock inconsistency exactly as the
// original asserts — this can only happen from an engine bug, never from
// caller input.
func (g *group) schedule(j *Job) {
	if j.LocksWaiting > 0 {
		return
	}
	if !g.locks.acquire(j) {
		panic("wolfe: lock inconsistency scheduling job " + strconv.FormatInt(int64(j.ID), 10))
	}
	g.queue.Put(j)
}

// peek returns the next job without removing it, or nil if empty.
func (g *group) peek() (*Job, bool) { return g.queue.Peek() }

// get removes and returns the next job. If the queue becomes empty as a
// result, onEmpty is invoked so the owning engine can drop the group.
func (g *group) get() (*Job, bool) {
	j, ok := g.queue.Get()
	if g.queue.Empty() && g.onEmpty != nil {
		g.onEmpty(g.name)
	}
	return j, ok
}
