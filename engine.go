package wolfe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/relayforge/wolfe/internal/pqueue"
)

// Engine is the single-owner dispatcher: the whole of the engine's state
// (job store, delayed queue, waiting set, lock manager, group queues,
// executing map, failed set) is protected by one mutex, mirroring the
// original's single-threaded-cooperative design (spec.md §5) realized as
// a whole-engine exclusion domain rather than a worker-loop-over-channel.
// Ported from scheduler/_scheduler.py:Scheduler.
type Engine struct {
	mu sync.Mutex

	clock func() time.Time

	counter idCounter
	jobs    map[JobID]*Job
	locks   *lockManager
	waiting *waitingSet
	delayed *delayedQueue
	groups  map[string]*group
	failed  map[JobID]struct{}

	executing map[JobID]*Attempt
	executors map[string]JobID

	finished JunkYard

	tracer         trace.Tracer
	enterTodoDur   metric.Float64Histogram
	requestJobDur  metric.Float64Histogram
	finishJobDur   metric.Float64Histogram
	jobsEntered    metric.Int64Counter
	jobsFinished   metric.Int64Counter
	jobsFailed     metric.Int64Counter
	dispatchMisses metric.Int64Counter
}

// JunkYard is the sink for successfully finished jobs. Ported from
// interfaces.py's JunkYardInterface.
type JunkYard interface {
	Put(job *Job) error
}

// NewEngine builds an Engine. finished receives every job that completes
// successfully; meter instruments operation latency and throughput
// (SPEC_FULL.md §10). clock defaults to time.Now and exists so tests can
// inject a deterministic source for NotBefore/delayed-queue scenarios.
func NewEngine(finished JunkYard, meter metric.Meter, tracer trace.Tracer, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}

	e := &Engine{
		clock:     clock,
		jobs:      map[JobID]*Job{},
		groups:    map[string]*group{},
		failed:    map[JobID]struct{}{},
		executing: map[JobID]*Attempt{},
		executors: map[string]JobID{},
		finished:  finished,
		tracer:    tracer,
	}
	e.locks = newLockManager(e.jobByID)
	e.waiting = newWaitingSet(e.isDoneLocked, e.jobByID)
	e.delayed = newDelayedQueue()

	e.enterTodoDur, _ = meter.Float64Histogram("wolfe_enter_todo_duration_seconds")
	e.requestJobDur, _ = meter.Float64Histogram("wolfe_request_job_duration_seconds")
	e.finishJobDur, _ = meter.Float64Histogram("wolfe_finish_job_duration_seconds")
	e.jobsEntered, _ = meter.Int64Counter("wolfe_jobs_entered_total")
	e.jobsFinished, _ = meter.Int64Counter("wolfe_jobs_finished_total")
	e.jobsFailed, _ = meter.Int64Counter("wolfe_jobs_failed_total")
	e.dispatchMisses, _ = meter.Int64Counter("wolfe_dispatch_misses_total")

	return e
}

func (e *Engine) jobByID(id JobID) *Job { return e.jobs[id] }

// IsDone reports whether a job id has successfully finished. Per spec.md
// §4.2, an id not yet issued is *not* done; an id that was issued and no
// longer appears in the job store (and isn't in the failed set) is done.
func (e *Engine) IsDone(id JobID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isDoneLocked(id)
}

// isDoneLocked is IsDone's body, callable from code that already holds
// e.mu (the waiting set's isDone callback runs under EnterTodo's lock).
func (e *Engine) isDoneLocked(id JobID) bool {
	return id > 0 && id <= e.counter.lastJobID() && e.jobs[id] == nil && !e.isFailed(id)
}

func (e *Engine) isFailed(id JobID) bool {
	_, ok := e.failed[id]
	return ok
}

// LastJobID returns the largest job id issued so far (0 if none).
func (e *Engine) LastJobID() JobID { return e.counter.lastJobID() }

// FailedDependents is a read-only diagnostic (not present in the original
// source, supplementing spec.md §9 open question 2): given a failed job
// id, it returns the ids of jobs still waiting on it — visibility into
// work stuck forever because its predecessor failed, without changing
// dispatch semantics (failed jobs' dependents are never unwaited).
func (e *Engine) FailedDependents(id JobID) []JobID {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isFailed(id) {
		return nil
	}
	dependents, ok := e.waiting.waitingFor[id]
	if !ok {
		return nil
	}
	out := make([]JobID, 0, len(dependents))
	for depID := range dependents {
		out = append(out, depID)
	}
	return out
}

// EnterTodo linearizes a root Todo's dependency graph into jobs and
// enters each into the system. It returns the root job's id. Ported from
// Scheduler.enter_todo.
func (e *Engine) EnterTodo(ctx context.Context, todo *Todo) (JobID, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "wolfe.enter_todo")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	jobs, err := linearize(todo, &e.counter)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	var rootID JobID
	for i, job := range jobs {
		if i == 0 {
			rootID = job.ID
		}
		e.enterJob(job)
	}

	e.jobsEntered.Add(ctx, int64(len(jobs)))
	e.enterTodoDur.Record(ctx, time.Since(start).Seconds())
	span.SetAttributes(attribute.Int64("wolfe.root_job_id", int64(rootID)), attribute.Int("wolfe.job_count", len(jobs)))
	return rootID, nil
}

// enterJob enters a freshly-linearized job into the system: the job
// store, then the delayed queue if its NotBefore lies in the future,
// otherwise straight into enterUndelayed. Ported from
// Scheduler._enter_job.
func (e *Engine) enterJob(job *Job) {
	e.jobs[job.ID] = job
	if job.NotBefore.isSet() && job.NotBefore.resolved.After(e.clock()) {
		e.delayed.put(job)
		return
	}
	e.enterUndelayed(job)
}

// enterUndelayed routes a non-delayed job to the waiting set, or, if it
// has no outstanding predecessors, straight to scheduleIndependent.
// Ported from Scheduler._enter_undelayed.
func (e *Engine) enterUndelayed(job *Job) {
	if !e.waiting.put(job) {
		e.scheduleIndependent(job)
	}
}

// scheduleIndependent announces the job's locks and, if they can be
// acquired immediately, enters it into its group queue. Ported from
// Scheduler._schedule_independent.
func (e *Engine) scheduleIndependent(job *Job) {
	e.locks.enter(job)
	e.getGroup(job.Group).schedule(job)
}

func (e *Engine) getGroup(name string) *group {
	g, ok := e.groups[name]
	if !ok {
		g = newGroup(name, e.locks, e.delGroup)
		e.groups[name] = g
	}
	return g
}

func (e *Engine) delGroup(name string) { delete(e.groups, name) }

// undelayJobs promotes delayed jobs whose scheduled time has arrived.
// Ported from Scheduler._undelay_jobs.
func (e *Engine) undelayJobs() {
	now := e.clock()
	for {
		job, ok := e.delayed.peek()
		if !ok || scheduledTime(job).After(now) {
			return
		}
		job, _ = e.delayed.get()
		e.enterUndelayed(job)
	}
}

// unwaitJobs schedules jobs freed by finishedID's success, preserving
// group-queue ordering across the batch via a transient priority queue.
// Ported from Scheduler._unwait_jobs.
func (e *Engine) unwaitJobs(finishedID JobID) {
	freed := e.waiting.free(finishedID)
	for _, job := range reorderBatch(freed) {
		e.scheduleIndependent(job)
	}
}

// reorderBatch re-sorts a batch of simultaneously-freed jobs through the
// same comparator group queues use, matching the original's rationale:
// "those jobs are equal regarding the timing, so we basically go by
// standard queue ordering" (scheduler/_scheduler.py).
func reorderBatch(jobs []*Job) []*Job {
	if len(jobs) < 2 {
		return jobs
	}
	q := pqueue.New(groupLess)
	for _, j := range jobs {
		q.Put(j)
	}
	return q.Drain()
}

// RequestJob finds the next runnable job across the executor's declared
// groups (default group if none declared) and marks it as being
// executed. A re-request from an executor already holding an assignment
// returns the same job idempotently. Ported from Scheduler.request_job.
func (e *Engine) RequestJob(ctx context.Context, executor Executor) (*Job, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "wolfe.request_job")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if id, ok := e.executors[executor.UID()]; ok {
		span.SetAttributes(attribute.Int64("wolfe.job_id", int64(id)), attribute.Bool("wolfe.idempotent_rerequest", true))
		e.requestJobDur.Record(ctx, time.Since(start).Seconds())
		return e.jobs[id], nil
	}

	e.undelayJobs()

	names := executor.Groups()
	if len(names) == 0 {
		names = []string{DefaultGroup}
	}

	var found *Job
	var foundGroup *group
	for _, name := range names {
		g, ok := e.groups[name]
		if !ok {
			continue
		}
		top, ok := g.peek()
		if !ok {
			continue
		}
		if found == nil || groupLess(top, found) {
			found = top
			foundGroup = g
		}
	}

	if found == nil {
		e.dispatchMisses.Add(ctx, 1)
		e.requestJobDur.Record(ctx, time.Since(start).Seconds())
		return nil, nil
	}

	job, _ := foundGroup.get()
	attempt := executor.Attempt()
	e.executing[job.ID] = attempt
	e.executors[executor.UID()] = job.ID

	e.requestJobDur.Record(ctx, time.Since(start).Seconds())
	span.SetAttributes(attribute.Int64("wolfe.job_id", int64(job.ID)), attribute.String("wolfe.group", job.Group))
	return job, nil
}

// ExecutionAttempt returns the current execution attempt for a job, or
// nil if it is not presently being executed.
func (e *Engine) ExecutionAttempt(id JobID) *Attempt {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executing[id]
}

// FinishJob marks an executed job finished, releasing its locks (which
// may free other jobs into their group queues) and, on success,
// un-waiting its dependents and handing the job to the JunkYard; on
// failure, the job moves to the failed set and its dependents wait
// forever (spec.md §9 open question 2). Ported from
// Scheduler.finish_job/_fail_job, with the executor-ownership and
// job-existence checks from _main.py:Main.finish_job folded in (the
// original splits these across two modules; Wolfe does both at once
// under the single exclusion domain).
func (e *Engine) FinishJob(ctx context.Context, executorUID string, id JobID, result Result) error {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "wolfe.finish_job", trace.WithAttributes(attribute.Int64("wolfe.job_id", int64(id))))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	attempt, ok := e.executing[id]
	if !ok {
		err := &JobNotFoundError{JobID: id}
		span.RecordError(err)
		return err
	}
	if attempt.Executor != executorUID {
		err := &InvalidExecutorError{JobID: id, Executor: executorUID}
		span.RecordError(err)
		return err
	}

	job := e.jobs[id]
	delete(e.executing, id)
	delete(e.executors, attempt.Executor)

	for _, released := range reorderBatch(e.locks.release(job)) {
		e.getGroup(released.Group).schedule(released)
	}

	end := e.clock()
	attempt.finish(end, result)
	job.Attempts = append(job.Attempts, attempt)

	if !result.Failed {
		delete(e.jobs, id)
		e.unwaitJobs(id)
		e.jobsFinished.Add(ctx, 1)
		if err := e.finished.Put(job); err != nil {
			span.RecordError(err)
			return err
		}
	} else {
		e.failed[id] = struct{}{}
		e.jobsFailed.Add(ctx, 1)
	}

	e.finishJobDur.Record(ctx, time.Since(start).Seconds())
	return nil
}
