package junkyard

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/relayforge/wolfe"
)

func testJob(id wolfe.JobID) *wolfe.Job {
	return &wolfe.Job{ID: id, Group: wolfe.DefaultGroup, Importance: 0}
}

func TestMemoryJunkYardRecordsJobs(t *testing.T) {
	my := NewMemoryJunkYard()
	job := testJob(1)
	if err := my.Put(job); err != nil {
		t.Fatalf("Put: %v", err)
	}
	records := my.Records()
	if len(records) != 1 || records[0].JobID != 1 {
		t.Fatalf("Records() = %+v, want one record for job 1", records)
	}
}

type failingPutter struct {
	failures int
	calls    int
}

func (f *failingPutter) Put(job *wolfe.Job) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("downstream unavailable")
	}
	return nil
}

func TestResilientJunkYardRetriesThroughTransientFailure(t *testing.T) {
	downstream := &failingPutter{failures: 2}
	rj := NewResilientJunkYard(downstream, otel.Meter("junkyard-test"))
	rj.attempts = 3
	rj.baseDelay = 0

	if err := rj.Put(testJob(1)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if downstream.calls != 3 {
		t.Fatalf("downstream.calls = %d, want 3 (2 failures then a success)", downstream.calls)
	}
}

func TestResilientJunkYardSurfacesPermanentFailure(t *testing.T) {
	downstream := &failingPutter{failures: 100}
	rj := NewResilientJunkYard(downstream, otel.Meter("junkyard-test"))
	rj.attempts = 2
	rj.baseDelay = 0

	if err := rj.Put(testJob(1)); err == nil {
		t.Fatal("expected an error once retries are exhausted")
	}
}
