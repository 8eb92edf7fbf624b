package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSubmitRunsTask(t *testing.T) {
	runner := New(zap.NewNop())
	runner.Start(context.Background())

	var ran atomic.Bool
	done := make(chan struct{})
	ok := runner.Submit("test", func(ctx context.Context) error {
		ran.Store(true)
		close(done)
		return nil
	})
	if !ok {
		t.Fatal("expected task to be accepted")
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not run")
	}
	runner.Stop()

	if !ran.Load() {
		t.Fatal("expected task to have run")
	}
}

func TestFailedTaskIsRetried(t *testing.T) {
	runner := New(zap.NewNop())
	runner.Start(context.Background())

	var attempts atomic.Int32
	done := make(chan struct{})
	runner.Submit("flaky", func(ctx context.Context) error {
		if attempts.Add(1) < 2 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("task was not retried to success")
	}
	runner.Stop()

	if attempts.Load() < 2 {
		t.Fatalf("expected at least 2 attempts, got %d", attempts.Load())
	}
}

func TestSubmitAfterStopRejected(t *testing.T) {
	runner := New(zap.NewNop())
	runner.Start(context.Background())
	runner.Stop()

	if runner.Submit("late", func(ctx context.Context) error { return nil }) {
		t.Fatal("expected submit after stop to be rejected")
	}
}
