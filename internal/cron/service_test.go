package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/olegbarsky/tradeport-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
	acquires int
	releases int
	err      error
}

func (l *fakeLock) Acquire(context.Context) (bool, error) {
	l.acquires++
	return l.acquired, l.err
}

func (l *fakeLock) Release(context.Context) error {
	l.releases++
	return nil
}

type recordingJob struct {
	name string
	runs int
	err  error
}

func (j *recordingJob) Name() string { return j.name }

func (j *recordingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func testCronLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestRunCycleExecutesJobs(t *testing.T) {
	jobA := &recordingJob{name: "a"}
	jobB := &recordingJob{name: "b"}
	lock := &fakeLock{acquired: true}
	svc, err := NewService(ServiceParams{
		Logger:   testCronLogger(),
		Registry: NewRegistry(jobA, jobB),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if jobA.runs != 1 || jobB.runs != 1 {
		t.Fatalf("expected each job once, got a=%d b=%d", jobA.runs, jobB.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("lock not released")
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &recordingJob{name: "a"}
	svc, err := NewService(ServiceParams{
		Logger:   testCronLogger(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{acquired: false},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job must not run without the lock")
	}
}

func TestRunCycleContinuesPastFailingJob(t *testing.T) {
	failing := &recordingJob{name: "bad", err: errors.New("boom")}
	healthy := &recordingJob{name: "good"}
	svc, err := NewService(ServiceParams{
		Logger:   testCronLogger(),
		Registry: NewRegistry(failing, healthy),
		Lock:     &fakeLock{acquired: true},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if healthy.runs != 1 {
		t.Fatalf("healthy job skipped after failure")
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: testCronLogger()}); err == nil {
		t.Fatal("expected error without lock")
	}
}
