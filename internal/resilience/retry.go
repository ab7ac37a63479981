// Package resilience provides the generic backoff, circuit-breaking and
// rate-limiting building blocks used to harden the JunkYard sink against
// a flaky downstream. Adapted from
// libs/go/core/resilience/{retry.go,circuit_breaker.go,ratelimiter.go}.
// Unlike the teacher, instruments are built from a Meter passed in at
// construction time rather than looked up via otel.GetMeterProvider() —
// callers already have one from obstrace.InitMeter, and threading it
// through avoids a hidden global.
package resilience

import (
	"context"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Retry executes fn with exponential backoff and full jitter. delay is
// the initial backoff, doubling (capped at 60s) after each failed
// attempt. Returns the first success, or the last error once attempts
// are exhausted. attrs are attached to the attempt/success/fail counters
// — e.g. attribute.String("group", job.Group), so one Retry call site
// shared across job groups still breaks down by which group is failing.
func Retry[T any](ctx context.Context, meter metric.Meter, attempts int, delay time.Duration, fn func() (T, error), attrs ...attribute.KeyValue) (T, error) {
	var zero T
	if attempts <= 0 {
		return zero, nil
	}

	attemptCounter, _ := meter.Int64Counter("wolfe_resilience_retry_attempts_total")
	successCounter, _ := meter.Int64Counter("wolfe_resilience_retry_success_total")
	failCounter, _ := meter.Int64Counter("wolfe_resilience_retry_fail_total")
	opt := metric.WithAttributes(attrs...)

	cur := delay
	var lastErr error
	for i := 0; i < attempts; i++ {
		v, err := fn()
		attemptCounter.Add(ctx, 1, opt)
		if err == nil {
			successCounter.Add(ctx, 1, opt)
			return v, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}

		if cur > 60*time.Second {
			cur = 60 * time.Second
		}
		sleep := time.Duration(rand.Int63n(int64(cur) + 1))
		select {
		case <-ctx.Done():
			failCounter.Add(ctx, 1, opt)
			return zero, ctx.Err()
		case <-time.After(sleep):
		}
		cur *= 2
	}
	failCounter.Add(ctx, 1, opt)
	return zero, lastErr
}
