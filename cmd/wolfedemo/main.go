// Command wolfedemo runs an in-process wolfe engine end to end: a cron
// job submits a small todo graph on a schedule, a handful of demo
// executors poll for work and report results, and everything that
// finishes lands in a resilient junk yard. Grounded on
// services/orchestrator/main.go (signal-aware startup/shutdown,
// logging/otel init calls) and services/orchestrator/scheduler.go
// (cron.New(cron.WithSeconds()) usage).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/relayforge/wolfe"
	"github.com/relayforge/wolfe/internal/obslog"
	"github.com/relayforge/wolfe/internal/obstrace"
	"github.com/relayforge/wolfe/junkyard"
)

const serviceName = "wolfedemo"

func main() {
	obslog.Init(serviceName)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTrace := obstrace.InitTracer(ctx, serviceName)
	shutdownMeter, meter := obstrace.InitMeter(ctx, serviceName)
	tracer := obstrace.Tracer(serviceName)

	sink := junkyard.NewResilientJunkYard(junkyard.NewMemoryJunkYard(), meter)
	engine := wolfe.NewEngine(sink, meter, tracer, nil)

	desc, err := wolfe.NewTodoDescription("demo.etl", nil, nil, "etl")
	if err != nil {
		slog.Error("build todo description failed", "error", err)
		return
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc("*/10 * * * * *", func() {
		submitPipeline(ctx, engine, desc)
	}); err != nil {
		slog.Error("add cron schedule failed", "error", err)
		return
	}
	c.Start()
	slog.Info("cron schedule started")

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go runExecutor(ctx, &wg, engine, fmt.Sprintf("worker-%d", i))
	}

	slog.Info("wolfedemo started")
	<-ctx.Done()
	slog.Info("shutdown initiated")

	stopCtx := c.Stop()
	<-stopCtx.Done()
	wg.Wait()

	obstrace.Flush(context.Background(), shutdownTrace)
	_ = shutdownMeter(context.Background())
	slog.Info("shutdown complete")
}

// submitPipeline enters a four-job fan-in todo graph: extract, then
// transform and validate in parallel, then load once both finish.
func submitPipeline(ctx context.Context, engine *wolfe.Engine, desc *wolfe.TodoDescription) {
	extract, err := desc.Todo(wolfe.TodoParams{Group: "etl"})
	if err != nil {
		slog.Error("build extract todo failed", "error", err)
		return
	}
	transform, err := desc.Todo(wolfe.TodoParams{DependsOn: []any{extract}, Group: "etl"})
	if err != nil {
		slog.Error("build transform todo failed", "error", err)
		return
	}
	validate, err := desc.Todo(wolfe.TodoParams{DependsOn: []any{extract}, Group: "etl"})
	if err != nil {
		slog.Error("build validate todo failed", "error", err)
		return
	}
	if _, err := desc.Todo(wolfe.TodoParams{DependsOn: []any{transform, validate}, Group: "etl"}); err != nil {
		slog.Error("build load todo failed", "error", err)
		return
	}

	rootID, err := engine.EnterTodo(ctx, extract)
	if err != nil {
		slog.Error("enter todo failed", "error", err)
		return
	}
	slog.Info("pipeline submitted", "root_job_id", rootID)
}

// demoExecutor is a polling Executor: it claims a job, sleeps briefly to
// simulate work, and occasionally reports failure.
type demoExecutor struct {
	uid    string
	groups []string
}

func (e *demoExecutor) UID() string      { return e.uid }
func (e *demoExecutor) Groups() []string { return e.groups }
func (e *demoExecutor) Attempt() *wolfe.Attempt {
	return &wolfe.Attempt{Executor: e.uid, Start: time.Now()}
}
func (e *demoExecutor) Result(exitCode int, stdout, stderr string) wolfe.Result {
	return wolfe.NewResult(exitCode, stdout, stderr)
}

func runExecutor(ctx context.Context, wg *sync.WaitGroup, engine *wolfe.Engine, name string) {
	defer wg.Done()
	exec := &demoExecutor{uid: name + "-" + uuid.NewString(), groups: []string{"etl", wolfe.DefaultGroup}}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := engine.RequestJob(ctx, exec)
			if err != nil {
				slog.Error("request job failed", "executor", exec.uid, "error", err)
				continue
			}
			if job == nil {
				continue
			}

			time.Sleep(time.Duration(20+rand.Intn(60)) * time.Millisecond)
			result := exec.Result(0, "ok", "")
			if rand.Intn(20) == 0 {
				result = exec.Result(1, "", "simulated failure")
			}

			if err := engine.FinishJob(ctx, exec.uid, job.ID, result); err != nil {
				slog.Error("finish job failed", "executor", exec.uid, "job_id", job.ID, "error", err)
				continue
			}
			slog.Info("job finished", "executor", exec.uid, "job_id", job.ID, "failed", result.Failed)
		}
	}
}
