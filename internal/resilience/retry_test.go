package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), otel.Meter("resilience-test"), 3, time.Millisecond, func() (int, error) {
		calls++
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("Retry() = %d, %v, want 42, nil", v, err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), otel.Meter("resilience-test"), 5, time.Millisecond, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("not yet")
		}
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Fatalf("Retry() = %d, %v, want 7, nil", v, err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	wantErr := errors.New("permanent failure")
	calls := 0
	_, err := Retry(context.Background(), otel.Meter("resilience-test"), 3, time.Millisecond, func() (int, error) {
		calls++
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3 (attempts exhausted)", calls)
	}
}

func TestRetryZeroAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), otel.Meter("resilience-test"), 0, time.Millisecond, func() (int, error) {
		calls++
		return 0, nil
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if calls != 0 {
		t.Fatalf("calls = %d, want 0 (attempts<=0 should never call fn)", calls)
	}
}

func TestRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Retry(ctx, otel.Meter("resilience-test"), 5, 50*time.Millisecond, func() (int, error) {
		calls++
		return 0, errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (cancellation observed before second attempt's sleep elapses)", calls)
	}
}
