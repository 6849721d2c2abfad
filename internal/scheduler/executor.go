// Package scheduler runs conversions and housekeeping in the background.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

var (
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("executor queue is full")
	// ErrStopped is returned by Submit after Stop has been called.
	ErrStopped = errors.New("executor is stopped")
)

// Task is a unit of background work. The context is cancelled when the
// executor is stopped before the task finishes.
type Task func(ctx context.Context) error

type job struct {
	name string
	task Task
	done chan error
}

// Executor runs tasks on a fixed number of workers fed by a bounded queue.
type Executor struct {
	concurrency int
	queue       chan job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	stopped  bool
	stopOnce sync.Once
}

// NewExecutor creates an executor. Call Start before submitting work.
func NewExecutor(concurrency, queueSize int) *Executor {
	if concurrency < 1 {
		concurrency = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		concurrency: concurrency,
		queue:       make(chan job, queueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the workers.
func (e *Executor) Start() {
	logger.Info("Starting executor (%d workers, queue %d)", e.concurrency, cap(e.queue))
	for i := 0; i < e.concurrency; i++ {
		e.wg.Add(1)
		go e.worker()
	}
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for j := range e.queue {
		j.done <- e.run(j)
		close(j.done)
	}
}

func (e *Executor) run(j job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Task %s panicked: %v", j.name, p)
			err = fmt.Errorf("task %s panicked: %v", j.name, p)
		}
	}()
	return j.task(e.ctx)
}

// Submit enqueues a task without blocking. The returned channel receives the
// task's result once and is then closed.
func (e *Executor) Submit(name string, task Task) (<-chan error, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stopped {
		return nil, ErrStopped
	}

	j := job{name: name, task: task, done: make(chan error, 1)}
	select {
	case e.queue <- j:
		return j.done, nil
	default:
		return nil, ErrQueueFull
	}
}

// Stop rejects new work and waits for queued and running tasks. If ctx ends
// first, running tasks are cancelled and ctx.Err is returned once they exit.
func (e *Executor) Stop(ctx context.Context) error {
	var err error
	e.stopOnce.Do(func() {
		logger.Info("Stopping executor")
		e.mu.Lock()
		e.stopped = true
		close(e.queue)
		e.mu.Unlock()

		finished := make(chan struct{})
		go func() {
			e.wg.Wait()
			close(finished)
		}()

		select {
		case <-finished:
		case <-ctx.Done():
			logger.Warn("Executor shutdown timeout, cancelling running tasks")
			e.cancel()
			<-finished
			err = ctx.Err()
		}
		e.cancel()
	})
	return err
}
