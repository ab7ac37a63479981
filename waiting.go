package wolfe

// waitingSet tracks jobs blocked on predecessor success. Ported verbatim
// (in spirit) from scheduler/_waiting.py: a set of waiting job ids plus a
// reverse index from an unfinished predecessor id to the set of
// dependents blocked on it.
type waitingSet struct {
	waiting     map[JobID]struct{}
	waitingFor  map[JobID]map[JobID]struct{}
	isDone      func(JobID) bool
	jobByID     func(JobID) *Job
}

func newWaitingSet(isDone func(JobID) bool, jobByID func(JobID) *Job) *waitingSet {
	return &waitingSet{
		waiting:    map[JobID]struct{}{},
		waitingFor: map[JobID]map[JobID]struct{}{},
		isDone:     isDone,
		jobByID:    jobByID,
	}
}

// put computes predecessorsWaiting by counting predecessors not yet done,
// registers the job under each such predecessor, and returns true iff the
// job actually has to wait (predecessorsWaiting > 0).
func (w *waitingSet) put(j *Job) bool {
	preds := j.sortedPredecessors()
	j.PredecessorsWaiting = len(preds)
	j.predecessorsSet = true

	for _, pid := range preds {
		if !w.isDone(pid) {
			set, ok := w.waitingFor[pid]
			if !ok {
				set = map[JobID]struct{}{}
				w.waitingFor[pid] = set
			}
			set[j.ID] = struct{}{}
		} else {
			j.PredecessorsWaiting--
		}
	}

	if j.PredecessorsWaiting < 0 {
		panic("wolfe: predecessorsWaiting went negative")
	}

	if j.PredecessorsWaiting == 0 {
		return false
	}
	w.waiting[j.ID] = struct{}{}
	return true
}

// free pops the dependents registered under finishedID, decrements each
// dependent's predecessorsWaiting, and returns those whose counter
// reaches zero. The returned order is an arbitrary map-iteration
// enumeration; callers must re-order through a group-queue-ordered
// buffer before scheduling (see engine.go reorderBatch).
func (w *waitingSet) free(finishedID JobID) []*Job {
	if _, stillWaiting := w.waiting[finishedID]; stillWaiting {
		panic("wolfe: freeing a job id that is itself still waiting")
	}

	dependents, ok := w.waitingFor[finishedID]
	if !ok {
		return nil
	}
	delete(w.waitingFor, finishedID)

	freed := make([]*Job, 0, len(dependents))
	for id := range dependents {
		job := w.jobByID(id)
		job.PredecessorsWaiting--
		if job.PredecessorsWaiting == 0 {
			freed = append(freed, job)
			delete(w.waiting, id)
		}
	}
	return freed
}
