package wolfe

import (
	"time"

	"github.com/relayforge/wolfe/internal/pqueue"
)

// QueueID satisfies pqueue.Item, keying queue membership by job id.
func (j *Job) QueueID() int64 { return int64(j.ID) }

// scheduledTime determines the scheduled time for a job, in the same
// spirit as the original's scheduler/_util.py scheduled_time: a job with
// no NotBefore is ready now; otherwise it's the resolved absolute instant
// baked in at Todo-construction time (see NotBefore.In/At).
func scheduledTime(j *Job) time.Time {
	if !j.NotBefore.isSet() {
		return time.Now()
	}
	return j.NotBefore.resolved
}

// delayedQueue is the min-heap of jobs whose NotBefore lies in the
// future, ordered by scheduled time. Ported from
// scheduler/_util.py:DelayedJob + scheduler/_job_queue.py:JobQueue.
type delayedQueue struct {
	q *pqueue.Queue[*Job]
}

func newDelayedQueue() *delayedQueue {
	return &delayedQueue{
		q: pqueue.New(func(a, b *Job) bool {
			return scheduledTime(a).Before(scheduledTime(b))
		}),
	}
}

func (d *delayedQueue) put(j *Job) { d.q.Put(j) }

func (d *delayedQueue) peek() (*Job, bool) { return d.q.Peek() }

func (d *delayedQueue) get() (*Job, bool) { return d.q.Get() }

func (d *delayedQueue) empty() bool { return d.q.Empty() }
