// Package junkyard implements sinks satisfying the wolfe.JunkYard
// interface: where successfully finished jobs land once FinishJob's
// bookkeeping is done. Grounded on interfaces.py's JunkYardInterface
// (put(job)) and the original's wolfe/_junk_yard.py instantiation site in
// _main.py — the file itself was not present in the retrieved
// original_source/ pack (see DESIGN.md), so MemoryJunkYard's shape is
// reconstructed from the single-method contract alone.
package junkyard

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/relayforge/wolfe"
	"github.com/relayforge/wolfe/internal/resilience"
)

// Record is what MemoryJunkYard retains about a finished job.
type Record struct {
	JobID      wolfe.JobID
	Group      string
	Importance int
	Attempts   int
	FinishedAt time.Time
}

// MemoryJunkYard is the reference in-process sink: an unbounded append
// log of finished-job records, guarded by a mutex.
type MemoryJunkYard struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryJunkYard builds an empty MemoryJunkYard.
func NewMemoryJunkYard() *MemoryJunkYard { return &MemoryJunkYard{} }

// Put appends a record for the finished job. It never fails — callers
// needing resilience against a flakier downstream should wrap a
// JunkYard implementation in ResilientJunkYard instead.
func (m *MemoryJunkYard) Put(job *wolfe.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, Record{
		JobID:      job.ID,
		Group:      job.Group,
		Importance: job.Importance,
		Attempts:   len(job.Attempts),
		FinishedAt: time.Now(),
	})
	return nil
}

// Records returns a snapshot of everything retained so far.
func (m *MemoryJunkYard) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Putter is the underlying sink ResilientJunkYard protects — anything
// satisfying wolfe.JunkYard, such as MemoryJunkYard or a
// database/queue-backed implementation.
type Putter interface {
	Put(job *wolfe.Job) error
}

// ResilientJunkYard decorates a downstream Putter with a rate limiter, a
// circuit breaker, and bounded retry — grounded on libs/go/core/
// resilience's stack, here given a home at the one component in
// SPEC_FULL.md's domain-stack table that plausibly talks to an external
// system (a real deployment's JunkYard is typically a database or
// message queue, not memory).
type ResilientJunkYard struct {
	downstream Putter
	meter      metric.Meter
	breaker    *resilience.CircuitBreaker
	limiter    *resilience.RateLimiter
	attempts   int
	baseDelay  time.Duration
}

// NewResilientJunkYard wraps downstream with the standard resilience
// trio: a token-bucket rate limiter (capacity/fillRate/window), a
// static-threshold circuit breaker (rolling window over
// windowSize/buckets), and bounded retry with exponential backoff.
func NewResilientJunkYard(downstream Putter, meter metric.Meter) *ResilientJunkYard {
	return &ResilientJunkYard{
		downstream: downstream,
		meter:      meter,
		breaker:    resilience.NewCircuitBreaker(meter, 30*time.Second, 6, 5, 0.5, 5*time.Second, 3),
		limiter:    resilience.NewRateLimiter(meter, 50, 25, time.Second, 100),
		attempts:   3,
		baseDelay:  100 * time.Millisecond,
	}
}

// Put admits the call through the rate limiter and circuit breaker, then
// retries the downstream Put with exponential backoff on failure. The
// job's group is attached to every resilience metric this call touches,
// so one shared limiter/breaker/retry instance still reports per-group
// throttling, tripping, and retry counts.
func (r *ResilientJunkYard) Put(job *wolfe.Job) error {
	groupAttr := attribute.String("group", job.Group)

	if !r.limiter.Allow(groupAttr) {
		return errRateLimited
	}
	if !r.breaker.Allow() {
		return errCircuitOpen
	}

	ctx := context.Background()
	_, err := resilience.Retry(ctx, r.meter, r.attempts, r.baseDelay, func() (struct{}, error) {
		return struct{}{}, r.downstream.Put(job)
	}, groupAttr)
	r.breaker.RecordResult(err == nil, groupAttr)
	return err
}

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

const (
	errRateLimited = sentinelError("wolfe: junkyard rate limit exceeded")
	errCircuitOpen = sentinelError("wolfe: junkyard circuit breaker open")
)
