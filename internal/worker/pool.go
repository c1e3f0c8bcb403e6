// Package worker runs accepted export tasks in the background.
package worker

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/ewilliams-labs/visualizer/internal/core/ports"
)

var (
	// ErrQueueFull is returned when Submit finds no free queue slot.
	ErrQueueFull = errors.New("worker: export queue full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("worker: pool stopped")
)

// Pool manages background workers for export tasks.
type Pool struct {
	runner ports.ExportRunner
	jobs   chan ports.ExportTask
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
}

var _ ports.ExportQueue = (*Pool)(nil)

// NewPool creates a pool with the given queue size. Workers start with Start.
func NewPool(runner ports.ExportRunner, queueSize int) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		runner: runner,
		jobs:   make(chan ports.ExportTask, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.jobs {
				p.process(task)
			}
		}()
	}
}

// Stop cancels running exports, drains the queue and waits for the workers.
// Tasks still queued run with a canceled context, so they fail fast and are
// recorded as failed.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.cancel()
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a task without blocking.
func (p *Pool) Submit(task ports.ExportTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		log.Printf("WARN worker: queue full, rejecting export %s", task.JobID)
		return ErrQueueFull
	}
}

func (p *Pool) process(task ports.ExportTask) {
	log.Printf("worker: export %s started", task.JobID)
	if err := p.runner.RunTask(p.ctx, task); err != nil {
		log.Printf("WARN worker: export %s failed: %v", task.JobID, err)
		return
	}
	log.Printf("worker: export %s completed", task.JobID)
}
