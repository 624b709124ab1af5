// Package worker runs background jobs such as publish notifications.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

type job struct {
	name string
	run  Task
}

type WorkerPool struct {
	jobs      chan job
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isClosing atomic.Bool
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewWorkerPool(size, queueSize int, log *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if queueSize < 1 {
		queueSize = 1000
	}
	ctx, cancel := context.WithCancel(context.Background())
	wp := &WorkerPool{
		jobs:   make(chan job, queueSize),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	for range size {
		wp.wg.Add(1)
		go wp.startWorker()
	}

	return wp
}

func (wp *WorkerPool) startWorker() {
	defer wp.wg.Done()
	for j := range wp.jobs {
		wp.run(j)
	}
}

func (wp *WorkerPool) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			wp.log.Error("worker task panicked", zap.String("task", j.name), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := j.run(wp.ctx); err != nil {
		wp.log.Error("worker task failed", zap.String("task", j.name), zap.Error(err))
		return
	}
	wp.log.Debug("worker task done", zap.String("task", j.name))
}

// Submit queues a task. It returns false when the pool is shutting down or
// the queue is full.
func (wp *WorkerPool) Submit(name string, t Task) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.isClosing.Load() {
		wp.log.Warn("task submitted during shutdown, dropping", zap.String("task", name))
		return false
	}
	select {
	case wp.jobs <- job{name: name, run: t}:
		return true
	default:
		wp.log.Warn("task queue full, dropping task", zap.String("task", name))
		return false
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish. When
// ctx expires first, running tasks see their context cancelled.
func (wp *WorkerPool) Shutdown(ctx context.Context) error {
	wp.mu.Lock()
	if !wp.isClosing.Swap(true) {
		close(wp.jobs)
	}
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.cancel()
		return nil
	case <-ctx.Done():
		wp.cancel()
		<-done
		return ctx.Err()
	}
}
