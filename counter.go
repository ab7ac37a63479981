package wolfe

import "sync/atomic"

// idCounter is a monotonic, engine-wide job id source starting at 1. It
// ports the original's `itertools.count(1)` generator plus its
// introspection-based `last_job_id()` as a plain atomic counter, which is
// the natural Go equivalent.
type idCounter struct {
	last atomic.Int64
}

// next allocates and returns the next job id.
func (c *idCounter) next() JobID {
	return JobID(c.last.Add(1))
}

// lastJobID returns the largest id issued so far, or 0 if none.
func (c *idCounter) lastJobID() JobID {
	return JobID(c.last.Load())
}
