// Package workerpool provides a bounded goroutine pool with backpressure.
//
// A Pool limits the number of goroutines that can run concurrently. When
// all workers are busy and the queue is full, Submit and Go return
// ErrPoolFull immediately so the caller can reject the work (429).
//
//	pool := workerpool.New(4)
//	defer pool.Shutdown()
//
//	task, err := pool.Go(ctx, jobID, func(ctx context.Context, report func(int)) (any, error) {
//	    return export(ctx, report)
//	})
//	if errors.Is(err, workerpool.ErrPoolFull) {
//	    ...
//	}
//	<-task.Done()
package workerpool

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolFull is returned when every worker is busy and the queue is at
// capacity.
var ErrPoolFull = errors.New("workerpool: pool is full")

// ErrPoolClosed is returned after Shutdown has been called.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Pool is a bounded goroutine pool.
type Pool struct {
	tasks   chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closeCh chan struct{}

	// mu guards the close of tasks against concurrent sends.
	mu sync.RWMutex

	// ctx is cancelled by Shutdown; every Task derives from it.
	ctx  context.Context
	stop context.CancelFunc
}

// New creates a Pool with size workers and a queue of 2×size.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	ctx, stop := context.WithCancel(context.Background())
	p := &Pool{
		tasks:   make(chan func(), size*2),
		closeCh: make(chan struct{}),
		ctx:     ctx,
		stop:    stop,
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	select {
	case <-p.closeCh:
		return ErrPoolClosed
	default:
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// Shutdown stops accepting work, cancels the context of every Task, and
// waits for the workers to drain the queue. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.closeCh)
		p.stop()

		p.mu.Lock()
		close(p.tasks)
		p.mu.Unlock()

		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		safeRun(task)
	}
}

// safeRun keeps a panicking plain task from killing its worker. Tasks
// started with Go convert panics to errors before they get here.
func safeRun(task func()) {
	defer func() { recover() }() //nolint:errcheck
	task()
}
