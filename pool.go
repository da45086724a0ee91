package statkit

import (
	"context"
	"sync"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/statkit/internal/sentinel"
)

// JobFunc is a unit of work executed by a worker pool.
type JobFunc func() error

// WorkerPool is a pool of workers that can execute jobs concurrently.
type WorkerPool struct {
	mu      sync.RWMutex // guards workers and closed; held for reading while enqueuing
	workers int
	closed  bool
	jobs    chan func()
	wg      sync.WaitGroup
	quit    chan struct{}
}

// NewWorkerPool creates a new worker pool with the given number of workers.
func NewWorkerPool(workers int) (*WorkerPool, error) {
	if workers < 1 {
		return nil, ewrap.Wrapf(sentinel.ErrInvalidWorkers, "workers %d", workers)
	}

	pool := &WorkerPool{
		workers: workers,
		jobs:    make(chan func(), workers),
		// buffer quit to allow multiple resize signals without blocking immediately
		quit: make(chan struct{}, workers),
	}
	pool.start()

	return pool, nil
}

// Workers returns the current number of workers.
func (pool *WorkerPool) Workers() int {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	return pool.workers
}

// Group returns a new task group whose jobs run on the pool.
// Jobs of a group are skipped once ctx is done.
func (pool *WorkerPool) Group(ctx context.Context) *Group {
	return &Group{pool: pool, ctx: ctx}
}

// Shutdown waits for all queued jobs to finish and stops the workers.
// Jobs submitted afterwards fail with sentinel.ErrPoolClosed.
func (pool *WorkerPool) Shutdown() {
	pool.mu.Lock()
	if pool.closed {
		pool.mu.Unlock()

		return
	}

	pool.closed = true
	pool.mu.Unlock()

	pool.wg.Wait()
	close(pool.quit)
}

// Resize changes the number of workers.
func (pool *WorkerPool) Resize(newSize int) error {
	if newSize < 1 {
		return ewrap.Wrapf(sentinel.ErrInvalidWorkers, "workers %d", newSize)
	}

	pool.mu.Lock()
	defer pool.mu.Unlock()

	if pool.closed {
		return sentinel.ErrPoolClosed
	}

	diff := newSize - pool.workers
	pool.workers = newSize

	if diff > 0 {
		for range diff {
			go pool.worker()
		}

		return nil
	}

	// send only the number of quit signals needed to remove workers
	for range -diff {
		pool.quit <- struct{}{}
	}

	return nil
}

// enqueue hands job to a worker, blocking while the queue is full.
func (pool *WorkerPool) enqueue(job func()) error {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	if pool.closed {
		return sentinel.ErrPoolClosed
	}

	pool.wg.Add(1)

	pool.jobs <- job

	return nil
}

// start starts the worker pool.
func (pool *WorkerPool) start() {
	for range pool.workers {
		go pool.worker()
	}
}

// worker is the main loop executed by each worker goroutine.
func (pool *WorkerPool) worker() {
	for {
		select {
		case job := <-pool.jobs:
			job()
			pool.wg.Done()
		case <-pool.quit:
			return
		}
	}
}

// Group collects jobs submitted for one computation and joins them.
type Group struct {
	pool *WorkerPool
	ctx  context.Context
	wg   sync.WaitGroup

	errOnce sync.Once
	err     error
}

// Go submits job to the pool. The first error returned by a job, or the
// cancellation of the group's context, is reported by Wait.
func (g *Group) Go(job JobFunc) {
	if g.ctx.Err() != nil {
		g.fail(g.ctx.Err())

		return
	}

	g.wg.Add(1)

	err := g.pool.enqueue(func() {
		defer g.wg.Done()

		if g.ctx.Err() != nil {
			g.fail(g.ctx.Err())

			return
		}

		jobErr := job()
		if jobErr != nil {
			g.fail(jobErr)
		}
	})
	if err != nil {
		g.wg.Done()
		g.fail(err)
	}
}

// Wait blocks until every submitted job has returned.
func (g *Group) Wait() error {
	g.wg.Wait()

	return g.err
}

func (g *Group) fail(err error) {
	g.errOnce.Do(func() { g.err = err })
}
