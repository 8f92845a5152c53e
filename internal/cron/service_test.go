package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
	"github.com/angelmondragon/partnerhub-backend/pkg/metrics"
)

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type heldLock struct{}

func (heldLock) Acquire(context.Context) (bool, error) { return false, nil }
func (heldLock) Release(context.Context) error         { return nil }

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	after := &testJob{name: "after"}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(success, failure, after),
		Lock:     &LocalLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	err = service.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "fail: boom") {
		t.Fatalf("expected combined job error, got %v", err)
	}
	for _, job := range []*testJob{success, failure, after} {
		if job.runs != 1 {
			t.Fatalf("expected %s to run once, ran %d", job.name, job.runs)
		}
	}
}

func TestRunOnceReleasesLock(t *testing.T) {
	lock := &LocalLock{}
	service, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: lock})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := service.RunOnce(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}
	ok, _ := lock.Acquire(context.Background())
	if !ok {
		t.Fatal("lock should be free after the cycle")
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	reg := prometheus.NewRegistry()
	job := &testJob{name: "license-expiry"}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(job),
		Lock:     heldLock{},
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job should not run without the lock")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var skipped float64
	for _, mf := range families {
		if mf.GetName() == "partnerhub_cron_cycle_skipped_total" {
			skipped = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	if skipped != 1 {
		t.Fatalf("expected one skipped cycle, got %v", skipped)
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected missing lock to fail")
	}
}

type panicJob struct{}

func (panicJob) Name() string              { return "exploding" }
func (panicJob) Run(context.Context) error { panic("nil map") }

type slowJob struct{}

func (slowJob) Name() string { return "slow" }
func (slowJob) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunOnceContainsPanicsAndTimeouts(t *testing.T) {
	reg := prometheus.NewRegistry()
	after := &testJob{name: "after"}
	service, err := NewService(ServiceParams{
		Logger:     logger.Nop(),
		Registry:   NewRegistry(panicJob{}, slowJob{}, after),
		Lock:       &LocalLock{},
		Metrics:    metrics.NewCronJobMetrics(reg),
		JobTimeout: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	err = service.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "exploding: panic: nil map") {
		t.Fatalf("expected panic to surface as error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout in combined error, got %v", err)
	}
	if after.runs != 1 {
		t.Fatalf("jobs after a panic must still run")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	outcomes := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "partnerhub_cron_job_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" {
					outcomes[l.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	if outcomes[metrics.OutcomePanic] != 1 || outcomes[metrics.OutcomeTimeout] != 1 || outcomes[metrics.OutcomeSuccess] != 1 {
		t.Fatalf("unexpected outcomes %v", outcomes)
	}
}
