package wolfe

// lockManager is the global lock manager: acquired/free/waiting maps from
// lock name to job ids. Ported verbatim (in spirit) from
// scheduler/_locks.py. All locks reaching this layer are exclusive —
// non-exclusive locks are rejected earlier, at Todo construction (see
// NonExclusiveLockError).
type lockManager struct {
	acquired map[string]JobID
	waiting  map[string]map[JobID]struct{}
	free     map[string]map[JobID]struct{}
	jobByID  func(JobID) *Job
}

func newLockManager(jobByID func(JobID) *Job) *lockManager {
	return &lockManager{
		acquired: map[string]JobID{},
		waiting:  map[string]map[JobID]struct{}{},
		free:     map[string]map[JobID]struct{}{},
		jobByID:  jobByID,
	}
}

// enter announces a job's locks to the system. locksWaiting becomes the
// count of lock names currently held by someone else.
func (lm *lockManager) enter(j *Job) {
	j.LocksWaiting = 0
	j.locksWaitingSet = true
	for _, lock := range j.Locks {
		if _, held := lm.acquired[lock.Name]; held {
			lm.addTo(lm.waiting, lock.Name, j.ID)
			j.LocksWaiting++
		} else {
			lm.addTo(lm.free, lock.Name, j.ID)
		}
	}
	if j.LocksWaiting < 0 {
		panic("wolfe: locksWaiting went negative")
	}
}

// acquire attempts to acquire all of a job's locks. Returns false without
// side effects if the job is still waiting on any lock.
func (lm *lockManager) acquire(j *Job) bool {
	if j.LocksWaiting > 0 {
		return false
	}
	for _, lock := range j.Locks {
		if _, exists := lm.acquired[lock.Name]; exists {
			panic("wolfe: lock already acquired by another job")
		}

		freeSet := lm.free[lock.Name]
		delete(freeSet, j.ID)
		delete(lm.free, lock.Name)
		if len(freeSet) > 0 {
			lm.waiting[lock.Name] = freeSet
			for id := range freeSet {
				lm.jobByID(id).LocksWaiting++
			}
		}
		lm.acquired[lock.Name] = j.ID
	}
	return true
}

// release releases all locks held by j and returns the jobs whose
// locksWaiting reached zero as a result — candidates the caller must
// re-insert into group queues in scheduling order (see
// engine.go:reorderBatch).
func (lm *lockManager) release(j *Job) []*Job {
	if j.LocksWaiting != 0 {
		panic("wolfe: releasing a job that never fully acquired its locks")
	}

	candidates := map[JobID]struct{}{}
	for _, lock := range j.Locks {
		if lm.acquired[lock.Name] != j.ID {
			panic("wolfe: lock ownership mismatch on release")
		}
		delete(lm.acquired, lock.Name)

		if waiters, ok := lm.waiting[lock.Name]; ok && len(waiters) > 0 {
			delete(lm.waiting, lock.Name)
			lm.free[lock.Name] = waiters
			for id := range waiters {
				job := lm.jobByID(id)
				job.LocksWaiting--
				if job.LocksWaiting == 0 {
					candidates[id] = struct{}{}
				}
			}
		}
	}

	out := make([]*Job, 0, len(candidates))
	for id := range candidates {
		out = append(out, lm.jobByID(id))
	}
	return out
}

func (lm *lockManager) addTo(m map[string]map[JobID]struct{}, name string, id JobID) {
	set, ok := m[name]
	if !ok {
		set = map[JobID]struct{}{}
		m[name] = set
	}
	set[id] = struct{}{}
}
