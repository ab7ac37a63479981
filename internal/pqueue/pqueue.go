// Package pqueue implements a generic binary-heap priority queue, the Go
// counterpart of the original's wolfe/scheduler/_job_queue.py: a heap
// wrapped by a caller-supplied comparator, tracking membership by id so
// callers can ask "is job N currently queued" in O(1).
package pqueue

import "container/heap"

// Item is anything that can sit in a Queue. ID must be stable and unique
// for the lifetime of the item's membership in the queue.
type Item interface {
	QueueID() int64
}

// Queue is a priority queue ordered by a caller-supplied Less function,
// mirroring _job_queue.py's wrapper-class-driven heap.
type Queue[T Item] struct {
	h *innerHeap[T]
}

// New builds an empty queue ordered by less (should implement a strict
// weak ordering; "a is higher priority than b" ⇔ less(a, b)).
func New[T Item](less func(a, b T) bool) *Queue[T] {
	h := &innerHeap[T]{less: less, ids: make(map[int64]struct{})}
	heap.Init(h)
	return &Queue[T]{h: h}
}

// Len returns the number of items currently queued.
func (q *Queue[T]) Len() int { return q.h.Len() }

// Empty reports whether the queue has no items.
func (q *Queue[T]) Empty() bool { return q.h.Len() == 0 }

// Contains reports whether an item with the given id is currently queued.
func (q *Queue[T]) Contains(id int64) bool {
	_, ok := q.h.ids[id]
	return ok
}

// Put inserts an item.
func (q *Queue[T]) Put(item T) {
	q.h.ids[item.QueueID()] = struct{}{}
	heap.Push(q.h, item)
}

// Get removes and returns the highest-priority item. The second return
// value is false if the queue was empty.
func (q *Queue[T]) Get() (T, bool) {
	var zero T
	if q.h.Len() == 0 {
		return zero, false
	}
	item := heap.Pop(q.h).(T)
	delete(q.h.ids, item.QueueID())
	return item, true
}

// Peek returns the highest-priority item without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	var zero T
	if q.h.Len() == 0 {
		return zero, false
	}
	return q.h.items[0], true
}

// Drain removes and returns every item in priority order, emptying the
// queue. Used wherever the original relies on JobQueue.__iter__ draining
// a transient reordering buffer (see engine.go's freed-jobs ordering).
func (q *Queue[T]) Drain() []T {
	out := make([]T, 0, q.h.Len())
	for {
		item, ok := q.Get()
		if !ok {
			break
		}
		out = append(out, item)
	}
	return out
}

// innerHeap adapts Queue to container/heap.Interface.
type innerHeap[T Item] struct {
	items []T
	less  func(a, b T) bool
	ids   map[int64]struct{}
}

func (h *innerHeap[T]) Len() int            { return len(h.items) }
func (h *innerHeap[T]) Less(i, j int) bool  { return h.less(h.items[i], h.items[j]) }
func (h *innerHeap[T]) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *innerHeap[T]) Push(x interface{}) { h.items = append(h.items, x.(T)) }
func (h *innerHeap[T]) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

