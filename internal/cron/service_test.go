package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeLock struct {
	acquired bool
	deny     bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.deny || f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.acquired = false
	f.releases++
	return nil
}

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

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "failing", err: errors.New("boom")}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:  logger.Nop(),
		Lock:    lock,
		Metrics: metrics.NewJobMetrics(prometheus.NewRegistry()),
		Jobs:    []Job{failing, nil, ok},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if failing.runs != 1 || ok.runs != 1 {
		t.Fatalf("expected each job to run once, failing=%d ok=%d", failing.runs, ok.runs)
	}
	if got := len(service.Jobs()); got != 2 {
		t.Fatalf("nil jobs should be dropped, got %d", got)
	}
	if lock.releases != 1 || lock.acquired {
		t.Fatalf("lock not released: releases=%d acquired=%v", lock.releases, lock.acquired)
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "job"}
	service, err := NewService(ServiceParams{
		Logger: logger.Nop(),
		Lock:   &fakeLock{deny: true},
		Jobs:   []Job{job},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran without the lock")
	}
}

func TestNewServiceDefaults(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatalf("expected error without logger")
	}

	service, err := NewService(ServiceParams{Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if service.interval != defaultInterval {
		t.Fatalf("expected default interval, got %s", service.interval)
	}
	if _, ok := service.lock.(*LocalLock); !ok {
		t.Fatalf("expected local lock, got %T", service.lock)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "job"}
	service, err := NewService(ServiceParams{Logger: logger.Nop(), Jobs: []Job{job}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected one immediate run, got %d", job.runs)
	}
}

func TestJobsReturnsCopy(t *testing.T) {
	service, err := NewService(ServiceParams{Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	service.Register(&testJob{name: "a"})

	jobs := service.Jobs()
	jobs[0] = nil
	if service.Jobs()[0] == nil {
		t.Fatalf("Jobs should return a copy")
	}
}
