package resilience

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RateLimiter combines a token bucket with a secondary fixed-window cap
// (the count resets once windowDur has elapsed since the window started),
// so admissions never exceed a hard requests-per-window ceiling even while
// the bucket still holds tokens. Adapted from
// libs/go/core/resilience/ratelimiter.go. Used to bound how fast the
// ResilientJunkYard will hammer a downstream sink, independent of how
// fast the engine is handing it finished jobs.
type RateLimiter struct {
	mu           sync.Mutex
	capacity     int64
	fillRate     float64
	available    float64
	lastRefill   time.Time
	windowStart  time.Time
	windowDur    time.Duration
	windowCount  int64
	maxPerWindow int64

	tokenDrops  metric.Int64Counter
	windowDrops metric.Int64Counter
}

// NewRateLimiter builds a token bucket of the given capacity/fillRate,
// additionally capped at maxPerWindow admissions per windowDur.
func NewRateLimiter(meter metric.Meter, capacity int64, fillRate float64, windowDur time.Duration, maxPerWindow int64) *RateLimiter {
	tokenDrops, _ := meter.Int64Counter("wolfe_resilience_ratelimiter_token_drops_total")
	windowDrops, _ := meter.Int64Counter("wolfe_resilience_ratelimiter_window_drops_total")
	return &RateLimiter{
		capacity:     capacity,
		fillRate:     fillRate,
		available:    float64(capacity),
		lastRefill:   time.Now(),
		windowStart:  time.Now(),
		windowDur:    windowDur,
		maxPerWindow: maxPerWindow,
		tokenDrops:   tokenDrops,
		windowDrops:  windowDrops,
	}
}

// Allow attempts to consume a single token. attrs are attached to the
// drop counters if the token is rejected — e.g.
// attribute.String("group", job.Group), so one limiter shared across job
// groups still shows which group is getting throttled.
func (r *RateLimiter) Allow(attrs ...attribute.KeyValue) bool { return r.AllowN(1, attrs...) }

// AllowN attempts to consume n tokens.
func (r *RateLimiter) AllowN(n int64, attrs ...attribute.KeyValue) bool {
	if n <= 0 {
		return true
	}
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if elapsed := now.Sub(r.lastRefill).Seconds(); elapsed > 0 {
		if refill := elapsed * r.fillRate; refill > 0 {
			r.available = minFloat(float64(r.capacity), r.available+refill)
			r.lastRefill = now
		}
	}

	if now.Sub(r.windowStart) >= r.windowDur {
		r.windowStart = now
		r.windowCount = 0
	}

	if r.maxPerWindow > 0 && r.windowCount+n > r.maxPerWindow {
		r.windowDrops.Add(context.Background(), 1, metric.WithAttributes(attrs...))
		return false
	}

	if float64(n) <= r.available {
		r.available -= float64(n)
		r.windowCount += n
		return true
	}
	r.tokenDrops.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	return false
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
