package resilience

import (
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestRateLimiterAllowsWithinCapacity(t *testing.T) {
	rl := NewRateLimiter(otel.Meter("resilience-test"), 5, 0, time.Second, 0)
	for i := 0; i < 5; i++ {
		if !rl.Allow() {
			t.Fatalf("token %d should be allowed within initial capacity", i)
		}
	}
	if rl.Allow() {
		t.Fatal("token beyond capacity (fillRate=0) should be rejected")
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(otel.Meter("resilience-test"), 1, 100, time.Second, 0)
	if !rl.Allow() {
		t.Fatal("first token should be allowed")
	}
	if rl.Allow() {
		t.Fatal("second token should be rejected before refill")
	}

	time.Sleep(15 * time.Millisecond) // fillRate=100/s -> ~1.5 tokens refilled
	if !rl.Allow() {
		t.Fatal("token should be allowed after enough time for a refill")
	}
}

func TestRateLimiterWindowCap(t *testing.T) {
	rl := NewRateLimiter(otel.Meter("resilience-test"), 100, 1000, time.Hour, 2)
	if !rl.Allow() || !rl.Allow() {
		t.Fatal("first two tokens should be allowed under the window cap")
	}
	if rl.Allow() {
		t.Fatal("third token should be rejected by the per-window cap even though bucket has capacity")
	}
}

func TestRateLimiterAllowNRejectsPartial(t *testing.T) {
	rl := NewRateLimiter(otel.Meter("resilience-test"), 3, 0, time.Second, 0)
	if !rl.AllowN(3) {
		t.Fatal("AllowN(3) should succeed with capacity 3")
	}
	if rl.AllowN(1) {
		t.Fatal("bucket should be empty after consuming full capacity")
	}
}

func TestRateLimiterAllowNNonPositive(t *testing.T) {
	rl := NewRateLimiter(otel.Meter("resilience-test"), 1, 0, time.Second, 0)
	if !rl.AllowN(0) {
		t.Fatal("AllowN(0) should always succeed without consuming tokens")
	}
	if !rl.Allow() {
		t.Fatal("capacity should be untouched by AllowN(0)")
	}
}
