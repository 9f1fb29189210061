package pipeline

import (
	"context"
	"sync"
)

// Job is a unit of work submitted to the WorkerPool.
type Job func(ctx context.Context) error

// Pool abstracts the worker pool so tests can inject failing implementations.
type Pool interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx enqueues a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// WorkerPool runs jobs using a fixed number of goroutines. Job errors are
// ignored; jobs report results through their own channels.
type WorkerPool struct {
	jobs    chan Job
	quit    chan struct{}
	wg      sync.WaitGroup
	senders sync.WaitGroup
	workers int

	mu     sync.Mutex
	closed bool
}

// NewWorkerPool creates a pool with the given number of workers and queue capacity.
func NewWorkerPool(workers, queue int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &WorkerPool{
		jobs:    make(chan Job, queue),
		quit:    make(chan struct{}),
		workers: workers,
	}
}

// Start launches the workers. They run until ctx is done or Close drains the queue.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					_ = job(ctx)
				}
			}
		}()
	}
}

// Submit enqueues a job, blocking while the queue is full. It returns
// ErrPoolClosed if the pool is closed before the job is accepted.
func (p *WorkerPool) Submit(job Job) error {
	return p.SubmitCtx(context.Background(), job)
}

// SubmitCtx is Submit that also gives up when ctx is done.
func (p *WorkerPool) SubmitCtx(ctx context.Context, job Job) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.senders.Add(1)
	p.mu.Unlock()
	defer p.senders.Done()

	select {
	case p.jobs <- job:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, releases blocked submitters and waits for the
// workers to finish the queued jobs.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.quit)
	p.mu.Unlock()

	p.senders.Wait()
	close(p.jobs)
	p.wg.Wait()
}

// ErrPoolClosed is returned if a Submit is attempted after Close.
var ErrPoolClosed = &PoolError{"worker pool closed"}

// PoolError provides a simple typed error for pool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }
