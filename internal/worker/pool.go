// Package worker runs periodic background maintenance.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrShutdownTimeout is returned when workers don't stop within timeout.
var ErrShutdownTimeout = errors.New("worker pool shutdown timed out")

// Task is one periodic job.
type Task struct {
	Name     string
	Interval time.Duration
	// Run performs one pass. Errors are logged and the task keeps its
	// schedule.
	Run func(ctx context.Context) error
}

// Pool runs each task on its own ticker until stopped.
type Pool struct {
	tasks  []Task
	logger *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a pool for tasks. Tasks without a positive interval are
// skipped.
func NewPool(logger *slog.Logger, tasks ...Task) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, t := range tasks {
		if t.Interval <= 0 || t.Run == nil {
			logger.Warn("skipping task without schedule", "task", t.Name)
			continue
		}
		p.tasks = append(p.tasks, t)
	}
	return p
}

// Start launches one worker per task. Each task runs once immediately.
func (p *Pool) Start() {
	p.logger.Info("starting worker pool", "tasks", len(p.tasks))

	for _, t := range p.tasks {
		p.wg.Add(1)
		go p.worker(t)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop(timeout time.Duration) error {
	p.logger.Info("stopping worker pool")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (p *Pool) worker(t Task) {
	defer p.wg.Done()

	logger := p.logger.With("task", t.Name)
	logger.Debug("worker started", "interval", t.Interval)

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		p.runOnce(logger, t)

		select {
		case <-p.ctx.Done():
			logger.Debug("worker stopping")
			return
		case <-ticker.C:
		}
	}
}

func (p *Pool) runOnce(logger *slog.Logger, t Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", "panic", r)
		}
	}()

	start := time.Now()
	if err := t.Run(p.ctx); err != nil {
		if p.ctx.Err() != nil {
			return
		}
		logger.Error("task failed", "error", err, "duration", time.Since(start))
	}
}
