package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPool_RunsImmediatelyAndOnSchedule(t *testing.T) {
	var runs atomic.Int32
	pool := NewPool(testLogger(), Task{
		Name:     "count",
		Interval: 10 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	pool.Start()
	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("task ran %d times, want at least 3", runs.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := pool.Stop(time.Second); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Error("task kept running after Stop")
	}
}

func TestPool_FirstRunIsImmediate(t *testing.T) {
	ran := make(chan struct{}, 1)
	pool := NewPool(testLogger(), Task{
		Name:     "daily",
		Interval: 24 * time.Hour,
		Run: func(context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
	})

	pool.Start()
	defer pool.Stop(time.Second)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run at start")
	}
}

func TestPool_SurvivesErrorsAndPanics(t *testing.T) {
	var calls atomic.Int32
	pool := NewPool(testLogger(), Task{
		Name:     "flaky",
		Interval: 5 * time.Millisecond,
		Run: func(context.Context) error {
			switch calls.Add(1) {
			case 1:
				return errors.New("disk busy")
			case 2:
				panic("boom")
			}
			return nil
		},
	})

	pool.Start()
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 4 {
		if time.Now().After(deadline) {
			t.Fatalf("task stopped after %d calls", calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := pool.Stop(time.Second); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestPool_SkipsUnscheduledTasks(t *testing.T) {
	pool := NewPool(testLogger(),
		Task{Name: "no interval", Run: func(context.Context) error { return nil }},
		Task{Name: "no func", Interval: time.Second},
	)
	if len(pool.tasks) != 0 {
		t.Errorf("tasks = %d, want 0", len(pool.tasks))
	}

	pool.Start()
	if err := pool.Stop(time.Second); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestPool_StopTimeout(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	pool := NewPool(testLogger(), Task{
		Name:     "stuck",
		Interval: time.Hour,
		Run: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
	})

	pool.Start()
	<-started

	if err := pool.Stop(20 * time.Millisecond); !errors.Is(err, ErrShutdownTimeout) {
		t.Errorf("Stop() = %v, want ErrShutdownTimeout", err)
	}
	close(release)
}
